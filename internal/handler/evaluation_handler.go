package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/dto"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/service"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/utils"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ai"
)

// EvaluationHandler exposes the grading pipeline over HTTP.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.evaluate)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var req dto.EvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Evaluate(c.Context(), req)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ai.ErrNoCredential):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrMalformedModelOutput):
			requestLogger(h.logger, c).Warn().Err(err).Msg("model returned malformed output")
			return utils.SendError(c, fiber.StatusBadGateway, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("evaluation failed")
			return utils.SendError(c, fiber.StatusBadGateway, err.Error())
		}
	}

	return utils.SendSuccess(c, "evaluation completed", result)
}
