package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldwork-service/internal/api/http/handlers"
	"github.com/spec-kit/fieldwork-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Teams          *handlers.TeamsHandler
	Tickets        *handlers.TicketsHandler
	Progress       *handlers.ProgressHandler
	Share          *handlers.ShareHandler
	AuthMiddleware *auth.AuthMiddleware
	LinkLimiter    fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Liveness)
	app.Get("/health/ready", cfg.Health.Readiness)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Get("/me", cfg.Auth.Me)
	authProtected.Post("/password/change", auth.RequireAnyRole(), cfg.Auth.ChangePassword)
	authProtected.Post("/register", auth.RequireAdmin(), cfg.Auth.Register)

	teams := app.Group("/teams", cfg.AuthMiddleware.Handle)
	teams.Post("", auth.RequireAdmin(), cfg.Teams.Create)
	teams.Get("", cfg.Teams.List)
	teams.Get("/:id", cfg.Teams.Get)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("", auth.RequireAdmin(), cfg.Teams.ListUsers)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", auth.RequireAnyRole(), cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", auth.RequireAdmin(), cfg.Tickets.Update)
	tickets.Post("/:id/assign", auth.RequireAdmin(), cfg.Tickets.AssignTeam)
	tickets.Post("/:id/status", auth.RequireAdmin(), cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/readiness", auth.RequireAdmin(), cfg.Tickets.Readiness)
	tickets.Post("/:id/signature", auth.RequireAdmin(), cfg.Tickets.AdminSignature)

	tickets.Post("/:id/progress", auth.RequireFieldTeam(), cfg.Progress.Write)
	tickets.Get("/:id/progress/next-day", auth.RequireFieldTeam(), cfg.Progress.NextDay)
	tickets.Post("/:id/progress/:progressId/photos", auth.RequireFieldTeam(), cfg.Progress.UploadPhoto)
	tickets.Post("/:id/progress/:progressId/link", auth.RequireFieldTeam(), cfg.Progress.IssueLink)

	// Unauthenticated review surface; the token is the credential.
	public := app.Group("/progress")
	if cfg.LinkLimiter != nil {
		public.Use(cfg.LinkLimiter)
	}
	public.Get("/:token", cfg.Share.View)
	public.Post("/:token/signature", cfg.Share.Sign)
}
