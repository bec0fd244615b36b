package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradehub-api/internal/service"
	"github.com/noah-isme/gradehub-api/internal/utils"
)

// SyncHandler exposes the course sync endpoint.
type SyncHandler struct {
	service service.SyncService
	logger  zerolog.Logger
}

// NewSyncHandler constructs a sync handler.
func NewSyncHandler(service service.SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger.With().Str("component", "sync_handler").Logger(),
	}
}

// Register wires sync routes onto a course-scoped group.
func (h *SyncHandler) Register(router fiber.Router) {
	router.Post("/:courseID/sync", h.sync)
}

func (h *SyncHandler) sync(c *fiber.Ctx) error {
	courseID := c.Params("courseID")
	if courseID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "course id is required")
	}

	report, err := h.service.SyncCourse(c.Context(), courseID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCourseConfigNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "course is not configured for sync")
		case errors.Is(err, service.ErrSyncInProgress):
			return utils.SendError(c, fiber.StatusConflict, "a sync is already running for this course")
		default:
			h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to sync course")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to sync course")
		}
	}

	if !report.OverallSuccess {
		// Partial results are still results; the report carries the detail.
		return utils.SendSuccessWithStatus(c, fiber.StatusMultiStatus, "course sync completed with failures", report)
	}

	return utils.SendSuccess(c, "course sync completed", report)
}
