package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gradehub-api/internal/config"
	"github.com/noah-isme/gradehub-api/internal/dto"
	"github.com/noah-isme/gradehub-api/internal/events"
	"github.com/noah-isme/gradehub-api/internal/observability"
	"github.com/noah-isme/gradehub-api/internal/repository"
	"github.com/noah-isme/gradehub-api/internal/source"
)

var (
	// ErrCourseConfigNotFound is returned when a sync targets a course the
	// configuration file does not declare.
	ErrCourseConfigNotFound = errors.New("course configuration not found")

	// ErrSyncInProgress is returned when a sync is requested for a course
	// that already has one running.
	ErrSyncInProgress = errors.New("sync already in progress for course")
)

// sourceOrder fixes the sequence sources are pulled in, so repeated runs
// produce reports in the same shape.
var sourceOrder = []string{"gradebook", "assessment", "responses"}

// summaryResultName labels the final rebuild step in the sync report.
const summaryResultName = "summary"

// unknownSources lists configured source names outside sourceOrder, sorted so
// reports stay deterministic.
func unknownSources(course config.CourseConfig) []string {
	var names []string
	for name := range course.Sources {
		known := false
		for _, candidate := range sourceOrder {
			if name == candidate {
				known = true
				break
			}
		}
		if !known {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SyncService orchestrates a full course sync: pull every configured source,
// ingest each assignment export, then rebuild the summary projection. One
// failing source or assignment never aborts the rest of the run.
type SyncService interface {
	SyncCourse(ctx context.Context, courseExternalID string) (dto.SyncReport, error)
}

type syncService struct {
	registry *config.CourseRegistry
	adapters map[string]source.Adapter
	ingest   IngestService
	summary  SummaryService
	retry    source.RetryPolicy
	events   events.Publisher
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu      sync.Mutex
	running map[string]struct{}
}

// NewSyncService builds the sync orchestrator. Adapters are keyed by source
// name; a course may reference any subset of them.
func NewSyncService(
	registry *config.CourseRegistry,
	adapters map[string]source.Adapter,
	ingest IngestService,
	summary SummaryService,
	retry source.RetryPolicy,
	publisher events.Publisher,
	logger zerolog.Logger,
) SyncService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &syncService{
		registry: registry,
		adapters: adapters,
		ingest:   ingest,
		summary:  summary,
		retry:    retry,
		events:   publisher,
		logger:   logger.With().Str("component", "sync_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gradehub-api/internal/service/sync"),
		now:      time.Now,
		running:  map[string]struct{}{},
	}
}

func (s *syncService) SyncCourse(ctx context.Context, courseExternalID string) (dto.SyncReport, error) {
	course, ok := s.registry.Lookup(courseExternalID)
	if !ok {
		return dto.SyncReport{}, ErrCourseConfigNotFound
	}

	if !s.acquire(courseExternalID) {
		return dto.SyncReport{}, ErrSyncInProgress
	}
	defer s.release(courseExternalID)

	ctx, span := s.tracer.Start(ctx, "sync.course", trace.WithAttributes(
		attribute.String("course.id", courseExternalID),
	))
	defer span.End()

	started := s.now().UTC()
	report := dto.SyncReport{
		CourseID:  courseExternalID,
		StartedAt: started,
	}

	s.events.PublishProgress(events.ProgressEvent{
		CourseID: courseExternalID,
		Stage:    events.StageStarted,
	})

	for _, name := range sourceOrder {
		binding, configured := course.Sources[name]
		if !configured {
			continue
		}

		result := s.syncSource(ctx, course, name, binding.CourseID)
		report.Results = append(report.Results, result)

		s.events.PublishProgress(events.ProgressEvent{
			CourseID: courseExternalID,
			Stage:    events.StageSource,
			Source:   name,
			Message:  result.Message,
		})
	}

	// A configured name the orchestrator does not recognize is almost always
	// a typo in the course config; it must fail the run, not vanish from it.
	for _, name := range unknownSources(course) {
		s.logger.Error().Str("course_id", courseExternalID).Str("source", name).Msg("unknown source in course config")
		report.Results = append(report.Results, dto.SourceResult{
			Source:    name,
			Message:   fmt.Sprintf("unknown source %s", name),
			Timestamp: s.now().UTC(),
		})
	}

	report.Results = append(report.Results, s.rebuildSummary(ctx, courseExternalID))

	report.OverallSuccess = true
	for _, result := range report.Results {
		if !result.Success {
			report.OverallSuccess = false
			break
		}
	}
	report.FinishedAt = s.now().UTC()

	outcome := "success"
	if !report.OverallSuccess {
		outcome = "partial"
	}
	observability.SyncRuns().WithLabelValues(courseExternalID, outcome).Inc()
	observability.SyncDuration().WithLabelValues(courseExternalID).Observe(report.FinishedAt.Sub(started).Seconds())
	span.SetAttributes(attribute.Bool("sync.overall_success", report.OverallSuccess))

	s.events.PublishProgress(events.ProgressEvent{
		CourseID: courseExternalID,
		Stage:    events.StageCompleted,
		Message:  outcome,
	})

	s.logger.Info().
		Str("course_id", courseExternalID).
		Bool("overall_success", report.OverallSuccess).
		Dur("took", report.FinishedAt.Sub(started)).
		Msg("course sync finished")

	return report, nil
}

func (s *syncService) syncSource(ctx context.Context, course config.CourseConfig, name, sourceCourseID string) dto.SourceResult {
	ctx, span := s.tracer.Start(ctx, "sync.source", trace.WithAttributes(
		attribute.String("sync.source", name),
	))
	defer span.End()

	result := dto.SourceResult{Source: name, Timestamp: s.now().UTC()}

	adapter, ok := s.adapters[name]
	if !ok {
		result.Message = fmt.Sprintf("no adapter configured for source %s", name)
		return result
	}

	var assignments []source.AssignmentRef
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var listErr error
		assignments, listErr = adapter.ListAssignments(ctx, sourceCourseID)
		return listErr
	})
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", course.ID).Str("source", name).Msg("failed to list assignments")
		result.Message = fmt.Sprintf("failed to list assignments: %v", err)
		return result
	}

	ingested := 0
	var failures []string
	for _, assignment := range assignments {
		if err := s.syncAssignment(ctx, course, adapter, name, sourceCourseID, assignment); err != nil {
			s.logger.Error().Err(err).
				Str("course_id", course.ID).
				Str("source", name).
				Str("assignment_id", assignment.ExternalID).
				Msg("failed to sync assignment")
			failures = append(failures, fmt.Sprintf("%s: %v", assignment.Title, err))
			continue
		}
		ingested++

		s.events.PublishProgress(events.ProgressEvent{
			CourseID:   course.ID,
			Stage:      events.StageIngested,
			Source:     name,
			Assignment: assignment.Title,
		})
	}

	details := map[string]interface{}{
		"assignments": len(assignments),
		"ingested":    ingested,
	}
	if len(failures) > 0 {
		details["failures"] = failures
	}
	result.Details = details

	// One bad assignment never fails the source; the reduced count and the
	// failure list carry the detail.
	result.Success = true
	if len(failures) == 0 {
		result.Message = fmt.Sprintf("synced %d assignments", ingested)
	} else {
		result.Message = fmt.Sprintf("synced %d of %d assignments", ingested, len(assignments))
	}

	return result
}

func (s *syncService) syncAssignment(ctx context.Context, course config.CourseConfig, adapter source.Adapter, name, sourceCourseID string, assignment source.AssignmentRef) error {
	var export string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		export, fetchErr = adapter.FetchExport(ctx, sourceCourseID, assignment.ExternalID)
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("fetch export: %w", err)
	}

	_, err = s.ingest.IngestExport(ctx, IngestExportParams{
		CourseExternalID:     course.ID,
		AssignmentExternalID: name + ":" + assignment.ExternalID,
		AssignmentTitle:      assignment.Title,
		Source:               name,
		RawExport:            export,
		CategoryRules:        course.Categories,
		Metadata: repository.CourseMetadata{
			Name:         course.Name,
			Department:   course.Department,
			CourseNumber: course.CourseNumber,
			Semester:     course.Semester,
			Year:         course.Year,
			Instructor:   course.Instructor,
		},
	})
	return err
}

func (s *syncService) rebuildSummary(ctx context.Context, courseExternalID string) dto.SourceResult {
	result := dto.SourceResult{Source: summaryResultName, Timestamp: s.now().UTC()}

	s.events.PublishProgress(events.ProgressEvent{
		CourseID: courseExternalID,
		Stage:    events.StageSummary,
	})

	rebuilt, err := s.summary.Rebuild(ctx, courseExternalID)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", courseExternalID).Msg("failed to rebuild summary")
		result.Message = fmt.Sprintf("failed to rebuild summary: %v", err)
		return result
	}

	result.Success = true
	result.Message = "summary rebuilt"
	result.Details = map[string]interface{}{
		"assignments": rebuilt.AssignmentsCount,
		"students":    rebuilt.StudentsCount,
	}
	return result
}

func (s *syncService) acquire(courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.running[courseID]; busy {
		return false
	}
	s.running[courseID] = struct{}{}
	return true
}

func (s *syncService) release(courseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, courseID)
}
