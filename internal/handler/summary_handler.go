package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradehub-api/internal/service"
	"github.com/noah-isme/gradehub-api/internal/utils"
)

// SummaryHandler serves the materialized summary read model.
type SummaryHandler struct {
	service service.SummaryService
	logger  zerolog.Logger
}

// NewSummaryHandler constructs a summary handler.
func NewSummaryHandler(service service.SummaryService, logger zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{
		service: service,
		logger:  logger.With().Str("component", "summary_handler").Logger(),
	}
}

// Register wires summary routes onto a course-scoped group.
func (h *SummaryHandler) Register(router fiber.Router) {
	router.Get("/:courseID/summary", h.summary)
}

func (h *SummaryHandler) summary(c *fiber.Ctx) error {
	courseID := c.Params("courseID")
	if courseID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "course id is required")
	}

	response, err := h.service.Summary(c.Context(), courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to load summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load summary")
	}

	return utils.SendSuccess(c, "summary loaded", response)
}
