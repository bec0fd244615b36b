package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradehub-api/internal/dto"
	"github.com/noah-isme/gradehub-api/internal/repository"
	"github.com/noah-isme/gradehub-api/internal/service"
	"github.com/noah-isme/gradehub-api/internal/utils"
)

// IngestHandler accepts raw exports directly, bypassing the source adapters.
// Useful for one-off imports and for platforms without an adapter yet.
type IngestHandler struct {
	service service.IngestService
	summary service.SummaryService
	logger  zerolog.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(service service.IngestService, summary service.SummaryService, logger zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		service: service,
		summary: summary,
		logger:  logger.With().Str("component", "ingest_handler").Logger(),
	}
}

// Register wires ingest routes onto a course-scoped group.
func (h *IngestHandler) Register(router fiber.Router) {
	router.Post("/:courseID/assignments/:assignmentID/ingest", h.ingest)
}

func (h *IngestHandler) ingest(c *fiber.Ctx) error {
	courseID := c.Params("courseID")
	assignmentID := c.Params("assignmentID")
	if courseID == "" || assignmentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "course id and assignment id are required")
	}

	var payload dto.IngestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.IngestExport(c.Context(), service.IngestExportParams{
		CourseExternalID:     courseID,
		AssignmentExternalID: assignmentID,
		AssignmentTitle:      payload.AssignmentTitle,
		RawExport:            payload.Export,
		Metadata: repository.CourseMetadata{
			Name:         payload.CourseName,
			Department:   payload.Department,
			CourseNumber: payload.CourseNumber,
			Semester:     payload.Semester,
			Year:         payload.Year,
			Instructor:   payload.Instructor,
		},
	})
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return utils.SendError(c, fiber.StatusBadRequest, "assignment title and export content are required")
		}
		h.logger.Error().Err(err).
			Str("course_id", courseID).
			Str("assignment_id", assignmentID).
			Msg("failed to ingest export")
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "failed to ingest export")
	}

	if _, err := h.summary.Rebuild(c.Context(), courseID); err != nil {
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to rebuild summary after ingest")
		return utils.SendError(c, fiber.StatusInternalServerError, "export stored but summary rebuild failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "export ingested", response)
}
