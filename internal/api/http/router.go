package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/workorder-service/internal/api/http/handlers"
	"github.com/fleetops/workorder-service/internal/auth"
	"github.com/fleetops/workorder-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	WorkOrders     *handlers.WorkOrdersHandler
	SlaPolicies    *handlers.SlaPoliciesHandler
	AuthMiddleware fiber.Handler
	// Metrics serves the Prometheus exposition; nil leaves /metrics unmounted.
	Metrics fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware, auth.RequireStaffRole())
	dispatch := auth.RequireStaffRole(domain.StaffRoleDispatcher, domain.StaffRoleAdmin)
	admin := auth.RequireStaffRole(domain.StaffRoleAdmin)

	orders := api.Group("/work-orders")
	orders.Get("/", cfg.WorkOrders.List)
	orders.Post("/", dispatch, cfg.WorkOrders.Create)
	orders.Get("/:id", cfg.WorkOrders.Get)
	orders.Get("/:id/activity", cfg.WorkOrders.Activity)
	orders.Get("/:id/transitions", cfg.WorkOrders.Transitions)
	orders.Get("/:id/sla", cfg.WorkOrders.SLA)
	orders.Patch("/:id/status", cfg.WorkOrders.UpdateStatus)
	orders.Patch("/:id/priority", dispatch, cfg.WorkOrders.UpdatePriority)
	orders.Patch("/:id/assignee", dispatch, cfg.WorkOrders.AssignTechnician)

	policies := api.Group("/sla-policies")
	policies.Get("/", cfg.SlaPolicies.List)
	policies.Get("/:categoryId", cfg.SlaPolicies.Get)
	policies.Put("/:categoryId", admin, cfg.SlaPolicies.Upsert)
	policies.Delete("/:categoryId", admin, cfg.SlaPolicies.Delete)

	api.Get("/reports/sla-compliance", dispatch, cfg.WorkOrders.Compliance)
}
