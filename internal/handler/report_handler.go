package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/service"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/utils"
)

// ReportHandler exposes PDF report generation over HTTP.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs a report handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register wires report routes.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Post("", h.generate)
}

func (h *ReportHandler) generate(c *fiber.Ctx) error {
	var req dto.ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	document, err := h.service.Generate(c.Context(), req)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRendererUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "report rendering is unavailable on this deployment")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("report generation failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "report generation failed")
		}
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="evaluation_report.pdf"`)

	return c.Send(document)
}
