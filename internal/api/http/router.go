package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/sla-escalation-service/internal/api/http/handlers"
	"github.com/spec-kit/sla-escalation-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Alerts  *handlers.AlertsHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.Ingest)
	tickets.Post("/escalate", cfg.Tickets.Escalate)
	tickets.Get("/dashboard", cfg.Tickets.Dashboard)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id", cfg.Tickets.GetStatus)

	if cfg.Alerts != nil {
		app.Get("/ws/alerts", cfg.Alerts.RequireUpgrade, cfg.Alerts.Stream())
	}
}
