package v1

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/analytics"
)

type pageViewParams struct {
	Page      string `json:"page"`
	Referrer  string `json:"referrer"`
	SessionID string `json:"sessionId"`
	UserAgent string `json:"userAgent"`
}

type durationParams struct {
	ViewID   string `json:"viewId"`
	Duration *int   `json:"duration"`
}

type eventParams struct {
	Type      string                 `json:"type"`
	Page      string                 `json:"page"`
	SessionID string                 `json:"sessionId"`
	Data      map[string]interface{} `json:"data"`
}

// isAdminSession reports whether the request carries a valid admin login.
// The check fails OPEN: a cookie the session layer cannot parse means "not
// the admin", so the view is still tracked.
func isAdminSession(ctx *cartridge.Context) (admin bool) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Logger.Debug("Admin session check failed, tracking anyway", slog.Any("reason", r))
			admin = false
		}
	}()

	if ctx.Session == nil {
		return false
	}
	return ctx.Session.IsAuthenticated(ctx.Ctx)
}

// RecordPageViewHandler handles POST /analytics/pageview.
func RecordPageViewHandler(ctx *cartridge.Context) error {
	var params pageViewParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	// Admin browsing must not pollute the stats. Accepted but not written.
	if isAdminSession(ctx) {
		return ctx.JSON(fiber.Map{"success": true, "ignored": true})
	}

	userAgent := params.UserAgent
	if userAgent == "" {
		userAgent = ctx.Get("User-Agent")
	}

	headers := func(name string) string { return ctx.Get(name) }
	country, city := analytics.ResolveGeo(headers, clientIP(ctx.Ctx))

	viewID, err := analytics.RecordPageView(ctx.Logger, ctx.DBManager.GetConnection(), analytics.PageViewInput{
		Page:      params.Page,
		Referrer:  params.Referrer,
		UserAgent: userAgent,
		SessionID: params.SessionID,
		Country:   country,
		City:      city,
	})
	if err != nil {
		return analyticsError(ctx, err, "record page view")
	}

	return ctx.JSON(fiber.Map{"success": true, "viewId": viewID})
}

// UpdatePageViewDurationHandler handles PUT /analytics/pageview. A 404 here
// is advisory; the shipped clients absorb it because delivery is
// best-effort.
func UpdatePageViewDurationHandler(ctx *cartridge.Context) error {
	var params durationParams
	if err := ctx.BodyParser(&params); err != nil || params.Duration == nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	if isAdminSession(ctx) {
		return ctx.JSON(fiber.Map{"success": true, "ignored": true})
	}

	err := analytics.UpdatePageViewDuration(ctx.Logger, ctx.DBManager.GetConnection(), params.ViewID, *params.Duration)
	if err != nil {
		return analyticsError(ctx, err, "update duration")
	}

	return ctx.JSON(fiber.Map{"success": true})
}

// RecordEventHandler handles POST /analytics/event.
func RecordEventHandler(ctx *cartridge.Context) error {
	var params eventParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	if isAdminSession(ctx) {
		return ctx.JSON(fiber.Map{"success": true, "ignored": true})
	}

	err := analytics.RecordEvent(ctx.Logger, ctx.DBManager.GetConnection(), analytics.EventInput{
		Type:      params.Type,
		Page:      params.Page,
		SessionID: params.SessionID,
		Data:      params.Data,
	})
	if err != nil {
		return analyticsError(ctx, err, "record event")
	}

	return ctx.JSON(fiber.Map{"success": true})
}

func analyticsError(ctx *cartridge.Context, err error, op string) error {
	switch {
	case analytics.IsValidation(err):
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case analytics.IsNotFound(err):
		ctx.Logger.Debug("Duration patch for unknown view", slog.Any("error", err))
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "not found",
		})
	default:
		ctx.Logger.Error("Analytics write failed", slog.String("op", op), slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "storage failure",
		})
	}
}
