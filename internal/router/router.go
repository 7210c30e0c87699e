package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/config"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/handler"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler *handler.EvaluationHandler
	ExtractionHandler *handler.ExtractionHandler
	ReportHandler     *handler.ReportHandler
	HistoryHandler    *handler.HistoryHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.ExtractionHandler != nil {
		deps.ExtractionHandler.Register(api.Group("/extractions"))
	}

	if deps.EvaluationHandler != nil {
		evaluations := api.Group("/evaluations")
		deps.EvaluationHandler.Register(evaluations)

		// History shares the /evaluations prefix: POST grades, GET browses.
		if deps.HistoryHandler != nil {
			deps.HistoryHandler.Register(evaluations)
		}
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api.Group("/reports"))
	}
}
