package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradehub-api/internal/dto"
	"github.com/noah-isme/gradehub-api/internal/ingest"
	"github.com/noah-isme/gradehub-api/internal/models"
	"github.com/noah-isme/gradehub-api/internal/observability"
	"github.com/noah-isme/gradehub-api/internal/repository"
)

// ErrCourseNotFound is returned when a rebuild targets a course the canonical
// store has never seen.
var ErrCourseNotFound = errors.New("course not found")

// UncategorizedLabel marks assignments no category rule matched.
const UncategorizedLabel = "Uncategorized"

// SummaryService materializes the student-by-assignment score matrix and
// serves the derived read model. Reads for unknown or empty courses return an
// empty model, never an error.
type SummaryService interface {
	Rebuild(ctx context.Context, courseExternalID string) (dto.RebuildResult, error)
	Summary(ctx context.Context, courseExternalID string) (dto.SummaryResponse, error)
}

type summaryService struct {
	courses     repository.CourseRepository
	assignments repository.AssignmentRepository
	students    repository.StudentRepository
	submissions repository.SubmissionRepository
	summaries   repository.SummaryRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSummaryService builds the summary projection service.
func NewSummaryService(
	courses repository.CourseRepository,
	assignments repository.AssignmentRepository,
	students repository.StudentRepository,
	submissions repository.SubmissionRepository,
	summaries repository.SummaryRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) SummaryService {
	return &summaryService{
		courses:     courses,
		assignments: assignments,
		students:    students,
		submissions: submissions,
		summaries:   summaries,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "summary_service").Logger(),
		now:         time.Now,
	}
}

func (s *summaryService) Rebuild(ctx context.Context, courseExternalID string) (dto.RebuildResult, error) {
	course, err := s.courses.GetByExternalID(ctx, courseExternalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.SummaryRebuilds().WithLabelValues(courseExternalID, "error").Inc()
			return dto.RebuildResult{}, ErrCourseNotFound
		}
		return dto.RebuildResult{}, err
	}

	assignments, err := s.assignments.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.RebuildResult{}, err
	}

	students, err := s.students.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.RebuildResult{}, err
	}

	submissions, err := s.submissions.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.RebuildResult{}, err
	}

	type cell struct{ assignmentID, studentID uint }
	scores := make(map[cell]*float64, len(submissions))
	for _, submission := range submissions {
		scores[cell{submission.AssignmentID, submission.StudentID}] = submission.TotalScore
	}

	// The projection is a full matrix: one row per (student, assignment)
	// pair, with a null score where no submission exists.
	entries := make([]models.SummaryEntry, 0, len(students)*len(assignments))
	for _, student := range students {
		for _, assignment := range assignments {
			entries = append(entries, models.SummaryEntry{
				CourseID:     course.ID,
				StudentID:    student.ID,
				AssignmentID: assignment.ID,
				Score:        scores[cell{assignment.ID, student.ID}],
			})
		}
	}

	if err := s.summaries.ReplaceForCourse(ctx, course.ID, entries); err != nil {
		observability.SummaryRebuilds().WithLabelValues(courseExternalID, "error").Inc()
		return dto.RebuildResult{}, fmt.Errorf("replace summary for course %s: %w", courseExternalID, err)
	}

	syncedAt := s.now().UTC()
	course.LastSyncedAt = &syncedAt
	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.RebuildResult{}, err
	}

	s.invalidate(ctx, courseExternalID)
	observability.SummaryRebuilds().WithLabelValues(courseExternalID, "success").Inc()

	s.logger.Info().
		Str("course_id", courseExternalID).
		Int("assignments", len(assignments)).
		Int("students", len(students)).
		Int("entries", len(entries)).
		Msg("summary projection rebuilt")

	return dto.RebuildResult{
		AssignmentsCount: len(assignments),
		StudentsCount:    len(students),
	}, nil
}

func (s *summaryService) Summary(ctx context.Context, courseExternalID string) (dto.SummaryResponse, error) {
	cacheKey := fmt.Sprintf("summary:course:%s", courseExternalID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.SummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("course_id", courseExternalID).Msg("summary cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
		}
	}

	course, err := s.courses.GetByExternalID(ctx, courseExternalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("course_id", courseExternalID).Msg("summary requested for unknown course")
			return dto.EmptySummary(), nil
		}
		return dto.SummaryResponse{}, err
	}

	assignments, err := s.assignments.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.SummaryResponse{}, err
	}

	students, err := s.students.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.SummaryResponse{}, err
	}

	entries, err := s.summaries.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.SummaryResponse{}, err
	}

	response := s.buildResponse(assignments, students, entries)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
			}
		}
	}

	return response, nil
}

func (s *summaryService) buildResponse(assignments []models.Assignment, students []models.Student, entries []models.SummaryEntry) dto.SummaryResponse {
	sorted := make([]models.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := ingest.CategoryPriority(sorted[i].Title), ingest.CategoryPriority(sorted[j].Title)
		if pi != pj {
			return pi < pj
		}
		ni, nj := ingest.FirstNumber(sorted[i].Title), ingest.FirstNumber(sorted[j].Title)
		if ni != nj {
			return ni < nj
		}
		return sorted[i].Title < sorted[j].Title
	})

	response := dto.EmptySummary()
	titleByID := make(map[uint]string, len(sorted))
	for _, assignment := range sorted {
		response.Assignments = append(response.Assignments, assignment.Title)
		titleByID[assignment.ID] = assignment.Title

		category := UncategorizedLabel
		if assignment.Category != nil {
			category = *assignment.Category
		}
		response.Categories[assignment.Title] = category

		if assignment.MaxPoints != nil {
			response.MaxPoints[assignment.Title] = *assignment.MaxPoints
		}
	}

	scoresByStudent := make(map[uint]map[string]interface{}, len(students))
	for _, entry := range entries {
		title, ok := titleByID[entry.AssignmentID]
		if !ok {
			continue
		}
		if scoresByStudent[entry.StudentID] == nil {
			scoresByStudent[entry.StudentID] = map[string]interface{}{}
		}
		if entry.Score != nil {
			scoresByStudent[entry.StudentID][title] = *entry.Score
		}
	}

	ordered := make([]models.Student, len(students))
	copy(ordered, students)
	sort.SliceStable(ordered, func(i, j int) bool {
		return strings.ToLower(ordered[i].LegalName) < strings.ToLower(ordered[j].LegalName)
	})

	for _, student := range ordered {
		scores := make(map[string]interface{}, len(sorted))
		for _, assignment := range sorted {
			if value, ok := scoresByStudent[student.ID][assignment.Title]; ok {
				scores[assignment.Title] = value
			} else {
				scores[assignment.Title] = ""
			}
		}
		response.Students = append(response.Students, dto.SummaryStudent{
			LegalName: student.LegalName,
			Email:     student.Email,
			Scores:    scores,
		})
	}

	return response
}

func (s *summaryService) invalidate(ctx context.Context, courseExternalID string) {
	if s.cache == nil {
		return
	}
	cacheKey := fmt.Sprintf("summary:course:%s", courseExternalID)
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate summary cache")
	}
}
