package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradehub-api/internal/dto"
	"github.com/noah-isme/gradehub-api/internal/ingest"
	"github.com/noah-isme/gradehub-api/internal/observability"
	"github.com/noah-isme/gradehub-api/internal/repository"
)

// IngestExportParams carries one raw export through the pipeline. Source is
// the adapter name for logging and metrics; direct API ingests use "api".
type IngestExportParams struct {
	CourseExternalID     string `validate:"required"`
	AssignmentExternalID string `validate:"required"`
	AssignmentTitle      string `validate:"required"`
	Source               string
	RawExport            string `validate:"required"`
	CategoryRules        []ingest.CategoryRule
	Metadata             repository.CourseMetadata
}

// IngestService turns raw exports into canonical rows: parse, normalize,
// categorize, then hand off to the transactional upsert.
type IngestService interface {
	IngestExport(ctx context.Context, params IngestExportParams) (dto.IngestResponse, error)
}

type ingestService struct {
	repo      repository.IngestRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewIngestService builds the ingest pipeline service.
func NewIngestService(repo repository.IngestRepository, validate *validator.Validate, logger zerolog.Logger) IngestService {
	return &ingestService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "ingest_service").Logger(),
	}
}

func (s *ingestService) IngestExport(ctx context.Context, params IngestExportParams) (dto.IngestResponse, error) {
	if err := s.validator.Struct(params); err != nil {
		return dto.IngestResponse{}, err
	}

	source := params.Source
	if source == "" {
		source = "api"
	}

	started := time.Now()

	export, err := ingest.ParseExport(params.RawExport)
	if err != nil {
		observability.IngestAssignments().WithLabelValues(params.CourseExternalID, source, "error").Inc()
		return dto.IngestResponse{}, fmt.Errorf("parse export for assignment %s: %w", params.AssignmentExternalID, err)
	}

	records := ingest.Normalize(export)
	category := ingest.Categorize(params.AssignmentTitle, params.CategoryRules)

	stats, err := s.repo.IngestAssignment(ctx, repository.IngestParams{
		CourseExternalID:     params.CourseExternalID,
		CourseMetadata:       params.Metadata,
		AssignmentExternalID: params.AssignmentExternalID,
		AssignmentTitle:      params.AssignmentTitle,
		Category:             category,
		Records:              records,
	})
	if err != nil {
		observability.IngestAssignments().WithLabelValues(params.CourseExternalID, source, "error").Inc()
		return dto.IngestResponse{}, fmt.Errorf("ingest assignment %s: %w", params.AssignmentExternalID, err)
	}

	observability.IngestAssignments().WithLabelValues(params.CourseExternalID, source, "success").Inc()
	observability.IngestRows().WithLabelValues(params.CourseExternalID, source).Add(float64(stats.SubmissionsProcessed))

	s.logger.Info().
		Str("course_id", params.CourseExternalID).
		Str("assignment_id", params.AssignmentExternalID).
		Str("source", source).
		Int("dropped_rows", len(export.Rows)-len(records)).
		Int("students", stats.StudentsProcessed).
		Int("submissions", stats.SubmissionsProcessed).
		Dur("took", time.Since(started)).
		Msg("assignment export ingested")

	return dto.IngestResponse{
		StudentsProcessed:    stats.StudentsProcessed,
		SubmissionsProcessed: stats.SubmissionsProcessed,
	}, nil
}
