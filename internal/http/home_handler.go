// Package http contains the server-side HTTP handlers mounted by routes.go.
package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/config"
)

// HomeIndexAction returns the site metadata consumed by the frontend shell.
func HomeIndexAction(ctx *cartridge.Context) error {
	cfg := config.GetConfig()
	return ctx.JSON(fiber.Map{
		"name":    cfg.AppName,
		"domain":  cfg.Domain,
		"sdkPath": "/analytics/sdk.js",
	})
}

// HealthIndexAction answers liveness probes.
func HealthIndexAction(ctx *cartridge.Context) error {
	return ctx.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}
