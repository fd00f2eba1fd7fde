package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Pages          *handlers.PagesHandler
	Actions        *handlers.ActionsHandler
	Ingest         *handlers.IngestHandler
	Auth           *handlers.AuthHandler
	Attachments    *handlers.AttachmentsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. The page/action surface is a flat
// dispatch on `/`: GET renders views selected by `?page=`, POST executes
// JSON operations selected by `?action=`.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)
	app.Post("/ingest", cfg.Ingest.Handle)

	app.Get("/attachments/:id", cfg.AuthMiddleware.Handle, cfg.Attachments.Download)

	app.Get("/", cfg.AuthMiddleware.Attach, cfg.Pages.Render)
	app.Post("/", cfg.AuthMiddleware.Handle, cfg.Actions.Dispatch)
}
