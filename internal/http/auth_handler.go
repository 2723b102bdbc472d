package http

import (
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/users"
)

type loginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProcessLoginAction handles POST /admin/api/login. Bad credentials and
// unknown accounts get the same answer.
func ProcessLoginAction(ctx *cartridge.Context) error {
	var params loginParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	user, err := users.VerifyCredentials(ctx.DBManager.GetConnection(), params.Email, params.Password)
	if err != nil {
		ctx.Logger.Info("Rejected login attempt", slog.String("email", params.Email))
		return ctx.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "invalid credentials",
		})
	}

	if err := ctx.Session.SetSession(ctx.Ctx, user.ID); err != nil {
		ctx.Logger.Error("Failed to establish session", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "session failure",
		})
	}

	ctx.Logger.Info("Admin logged in", slog.String("email", user.Email))
	return ctx.JSON(fiber.Map{"success": true})
}

// LogoutAction handles POST /admin/api/logout.
func LogoutAction(ctx *cartridge.Context) error {
	ctx.Session.ClearSession(ctx.Ctx)
	return ctx.JSON(fiber.Map{"success": true})
}
