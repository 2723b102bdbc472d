package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "folio/api/v1"
	"folio/internal/config"
	"folio/internal/http"
)

// publicCORSConfig is shared by every public endpoint. Tracking requests
// arrive cross-origin from wherever the site is served.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,PUT,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// SetupSession configures session management on the server.
func SetupSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := cartridge.NewSessionManager(cartridge.SessionConfig{
		CookieName: cfg.AppName + "_session",
		Secret:     cfg.GetSessionSecret(),
		TTL:        time.Duration(cfg.GetLoginSessionTimeout()) * time.Second,
		Secure:     cfg.IsProduction(),
		LoginPath:  "/admin/api/login",
	})
	srv.SetSession(sessionMgr)
}

// MountAppRoutes mounts all application routes.
func MountAppRoutes(srv *cartridge.Server) {
	SetupSession(srv)

	cfg := config.GetConfig()
	sessionMgr := srv.Session()

	// Rate limiting only bites in production; in development and test it
	// would fight the tooling.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Ingestion: 70/min per IP rides out legitimate browsing bursts.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Login gets a much tighter budget against brute force.
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	sdkConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	loginConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{authRateLimiter},
	}

	adminAPIConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{sessionMgr.Middleware()},
	}

	noContent := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === ROOT ROUTES ===
	srv.Get("/", http.HomeIndexAction)
	srv.Get("/_health", http.HealthIndexAction)

	// === ANALYTICS INGESTION ===
	// The session middleware is deliberately absent here: the handlers do
	// their own fail-open admin check so a broken cookie can never block
	// tracking.
	srv.Post("/analytics/pageview", v1.RecordPageViewHandler, publicAPIConfig)
	srv.Put("/analytics/pageview", v1.UpdatePageViewDurationHandler, publicAPIConfig)
	srv.Options("/analytics/pageview", noContent, publicAPIConfig)
	// POST form of the duration patch for navigator.sendBeacon, which cannot
	// issue PUT requests.
	srv.Post("/analytics/pageview/duration", v1.UpdatePageViewDurationHandler, publicAPIConfig)
	srv.Options("/analytics/pageview/duration", noContent, publicAPIConfig)
	srv.Post("/analytics/event", v1.RecordEventHandler, publicAPIConfig)
	srv.Options("/analytics/event", noContent, publicAPIConfig)

	// === TRACKER DELIVERY ===
	srv.Get("/analytics/sdk.js", v1.GetSDKAction, sdkConfig)

	// === PUBLIC CONTENT ===
	srv.Get("/api/articles", http.ArticlesIndexAction, publicAPIConfig)
	srv.Get("/api/projects", http.ProjectsIndexAction, publicAPIConfig)
	srv.Post("/api/articles/:slug/read", http.ArticleReadAction, publicAPIConfig)

	// === AUTHENTICATION ===
	srv.Post("/admin/api/login", http.ProcessLoginAction, loginConfig)
	srv.Post("/admin/api/logout", http.LogoutAction)

	// === PROTECTED ADMIN API ===
	srv.Get("/admin/api/stats", http.StatsIndexAction, adminAPIConfig)
}
