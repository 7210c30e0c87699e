package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/service"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/utils"
)

// HistoryHandler exposes persisted evaluations over HTTP.
type HistoryHandler struct {
	service service.HistoryService
	logger  zerolog.Logger
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(service service.HistoryService, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger.With().Str("component", "history_handler").Logger(),
	}
}

// Register wires history routes.
func (h *HistoryHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *HistoryHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "limit must be an integer")
	}

	items, err := h.service.List(c.Context(), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list evaluations")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list evaluations")
	}

	return utils.SendSuccess(c, "evaluations retrieved", items)
}

func (h *HistoryHandler) get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "id must be a positive integer")
	}

	result, err := h.service.Get(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEvaluationNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to load evaluation")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load evaluation")
		}
	}

	return utils.SendSuccess(c, "evaluation retrieved", result)
}
