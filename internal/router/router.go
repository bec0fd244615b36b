package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gradehub-api/internal/config"
	"github.com/noah-isme/gradehub-api/internal/handler"
	"github.com/noah-isme/gradehub-api/internal/middleware"
	"github.com/noah-isme/gradehub-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SyncHandler    *handler.SyncHandler
	SummaryHandler *handler.SummaryHandler
	IngestHandler  *handler.IngestHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SummaryHandler != nil {
		deps.SummaryHandler.Register(api.Group("/courses", jwtMiddleware))
	}

	// Writes are staff-only and sync is rate limited; a run can take minutes.
	staffOnly := middleware.RequireRole("admin", "teacher", "staff")
	if deps.SyncHandler != nil {
		deps.SyncHandler.Register(api.Group("/courses", jwtMiddleware, staffOnly, middleware.RateLimit("sync", 5, time.Minute)))
	}
	if deps.IngestHandler != nil {
		deps.IngestHandler.Register(api.Group("/courses", jwtMiddleware, staffOnly))
	}
}
