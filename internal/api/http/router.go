package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/api/http/handlers"
	"github.com/spindit/locker-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration. Nil DevTools and
// Metrics leave their routes unregistered.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Zones          *handlers.ZonesHandler
	Lockers        *handlers.LockersHandler
	Requests       *handlers.RequestsHandler
	StaffRequests  *handlers.StaffRequestsHandler
	Children       *handlers.ChildrenHandler
	Dashboard      *handlers.DashboardHandler
	DevTools       *handlers.DevToolsHandler
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)

	signedIn := cfg.AuthMiddleware.Handle
	account := authGroup.Group("", signedIn, auth.RequireAnyRole())
	account.Get("/me", cfg.Auth.Me)
	account.Patch("/me", cfg.Auth.UpdateMe)
	account.Post("/password/change", cfg.Auth.ChangePassword)

	// Per-route middleware: a root group would also wrap /dev.
	anyRole := auth.RequireAnyRole()
	app.Get("/requests", signedIn, anyRole, cfg.Requests.List)
	app.Post("/requests", signedIn, anyRole, cfg.Requests.Create)
	app.Post("/requests/:id/cancel", signedIn, anyRole, cfg.Requests.Cancel)
	app.Get("/assignments", signedIn, anyRole, cfg.Requests.Assignments)
	app.Get("/zones", signedIn, anyRole, cfg.Zones.List)
	app.Get("/children", signedIn, anyRole, cfg.Children.List)
	app.Post("/children", signedIn, anyRole, cfg.Children.Create)

	staff := app.Group("/staff", signedIn, auth.RequireStaff())
	staff.Get("/dashboard", cfg.Dashboard.Show)

	staff.Get("/users", cfg.Users.List)
	staff.Post("/users", cfg.Users.Create)
	staff.Get("/users/:id", cfg.Users.Get)
	staff.Patch("/users/:id", cfg.Users.Update)
	staff.Delete("/users/:id", cfg.Users.Delete)

	staff.Get("/zones", cfg.Zones.List)
	staff.Post("/zones", cfg.Zones.Create)
	staff.Get("/zones/:id", cfg.Zones.Get)
	staff.Put("/zones/:id", cfg.Zones.Update)
	staff.Delete("/zones/:id", cfg.Zones.Delete)
	staff.Put("/zones/:id/map", cfg.Zones.UploadMap)
	staff.Get("/zones/:id/map", cfg.Zones.Map)

	staff.Get("/lockers", cfg.Lockers.List)
	staff.Post("/lockers", cfg.Lockers.Create)
	staff.Get("/lockers/:id", cfg.Lockers.Get)
	staff.Put("/lockers/:id", cfg.Lockers.Update)
	staff.Delete("/lockers/:id", cfg.Lockers.Delete)

	// Bulk routes go before "/requests/:id" so "bulk" is not taken as an id.
	staff.Post("/requests/bulk/status", cfg.StaffRequests.BulkStatus)
	staff.Post("/requests/bulk/delete", cfg.StaffRequests.BulkDelete)
	staff.Get("/requests", cfg.StaffRequests.List)
	staff.Post("/requests", cfg.StaffRequests.Create)
	staff.Get("/requests/:id", cfg.StaffRequests.Get)
	staff.Put("/requests/:id", cfg.StaffRequests.Update)
	staff.Delete("/requests/:id", cfg.StaffRequests.Delete)
	staff.Patch("/requests/:id/status", cfg.StaffRequests.UpdateStatus)
	staff.Get("/requests/:id/assignment", cfg.StaffRequests.Assignment)
	staff.Put("/requests/:id/assignment", cfg.StaffRequests.Assign)
	staff.Get("/assignments/audit", cfg.StaffRequests.Audit)

	if cfg.DevTools != nil {
		dev := app.Group("/dev")
		dev.Get("/templates", cfg.DevTools.Templates)
		dev.Post("/scenarios/:index", cfg.DevTools.RunScenario)
	}
}
