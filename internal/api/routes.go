package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonhyungLee/hookingauto/internal/publisher"
)

// HealthChecker is implemented by stores that can be probed for liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegisterRoutes mounts metrics, health and the webhook endpoints.
// pub and store may be nil when the broker or database is not configured.
func RegisterRoutes(app *fiber.App, h *Handler, pub *publisher.Publisher, store HealthChecker) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if pub == nil {
			checks["nats"] = "not configured"
		} else if !pub.Healthy() {
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		if store == nil {
			checks["store"] = "not configured"
		} else {
			healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := store.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	v1 := app.Group("/api/v1")
	v1.Post("/order", h.HandleOrder)
	v1.Post("/hedge", h.HandleHedge)
	v1.Post("/price", h.HandlePrice)
}
