package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staffdesk/internal/api/http/handlers"
	"github.com/spec-kit/staffdesk/internal/auth"
	"github.com/spec-kit/staffdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Staff   *handlers.StaffHandler
	Gateway *auth.Gateway
}

// RegisterRoutes wires HTTP routes. The guard order on protected
// groups is authenticate, then role, then granular permission.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Get("/session", cfg.Gateway.OptionalAuth, cfg.Auth.Session)

	protected := authGroup.Group("", cfg.Gateway.Authenticate)
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Post("/change-password", cfg.Auth.ChangePassword)

	staff := app.Group("/staff", cfg.Gateway.Authenticate, auth.RequireRoles(domain.RoleAdmin))
	staff.Get("", auth.RequirePermission(domain.ModuleStaff, domain.ActionRead), cfg.Staff.List)
	staff.Post("", auth.RequirePermission(domain.ModuleStaff, domain.ActionCreate), cfg.Staff.Create)
	staff.Get("/:id", auth.RequirePermission(domain.ModuleStaff, domain.ActionRead), cfg.Staff.Get)
	staff.Patch("/:id", auth.RequirePermission(domain.ModuleStaff, domain.ActionUpdate), cfg.Staff.Update)
	staff.Put("/:id/permissions", auth.RequirePermission(domain.ModuleStaff, domain.ActionManage), cfg.Staff.UpdateGrants)
}
