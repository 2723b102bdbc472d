package http

import (
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/content"
)

// ArticlesIndexAction handles GET /api/articles.
func ArticlesIndexAction(ctx *cartridge.Context) error {
	articles, err := content.ListArticles(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to list articles", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "storage failure",
		})
	}
	return ctx.JSON(fiber.Map{"success": true, "articles": articles})
}

// ProjectsIndexAction handles GET /api/projects.
func ProjectsIndexAction(ctx *cartridge.Context) error {
	projects, err := content.ListProjects(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to list projects", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "storage failure",
		})
	}
	return ctx.JSON(fiber.Map{"success": true, "projects": projects})
}

// ArticleReadAction handles POST /api/articles/:slug/read, the read counter
// the frontend fires once per article render. Always succeeds.
func ArticleReadAction(ctx *cartridge.Context) error {
	slug := ctx.Ctx.Params("slug")
	content.IncrementArticleViews(ctx.Logger, ctx.DBManager.GetConnection(), slug)
	return ctx.JSON(fiber.Map{"success": true})
}
