package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/service"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/utils"
)

// ExtractionHandler exposes document text extraction over HTTP.
type ExtractionHandler struct {
	service service.ExtractionService
	logger  zerolog.Logger
}

// NewExtractionHandler constructs an extraction handler.
func NewExtractionHandler(service service.ExtractionService, logger zerolog.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		service: service,
		logger:  logger.With().Str("component", "extraction_handler").Logger(),
	}
}

// Register wires extraction routes.
func (h *ExtractionHandler) Register(router fiber.Router) {
	router.Post("", h.extract)
}

func (h *ExtractionHandler) extract(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	handle, err := file.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
	}
	defer handle.Close()

	data, err := io.ReadAll(handle)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read uploaded file")
	}

	result, err := h.service.Extract(c.Context(), service.ExtractionInput{
		FileName: file.Filename,
		Data:     data,
		APIKey:   c.FormValue("api_key"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("extraction failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "extraction failed")
		}
	}

	return utils.SendSuccess(c, "extraction completed", result)
}
