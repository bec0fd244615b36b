package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradehub-api/internal/config"
	"github.com/noah-isme/gradehub-api/internal/dto"
	"github.com/noah-isme/gradehub-api/internal/events"
	"github.com/noah-isme/gradehub-api/internal/source"
)

const syncTestConfig = `{
  "courses": [
    {
      "id": "cs101-fa26",
      "name": "Intro CS",
      "sources": {
        "gradebook": {"course_id": "90210"},
        "assessment": {"course_id": "555"}
      }
    }
  ]
}`

type fakeAdapter struct {
	name        string
	assignments []source.AssignmentRef
	exports     map[string]string
	listErr     error
	fetchErr    map[string]error
	block       chan struct{}
	started     chan struct{}
	startOnce   sync.Once
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) ListAssignments(ctx context.Context, courseID string) ([]source.AssignmentRef, error) {
	if a.started != nil {
		a.startOnce.Do(func() { close(a.started) })
	}
	if a.block != nil {
		<-a.block
	}
	if a.listErr != nil {
		return nil, a.listErr
	}
	return a.assignments, nil
}

func (a *fakeAdapter) FetchExport(ctx context.Context, courseID, assignmentID string) (string, error) {
	if err := a.fetchErr[assignmentID]; err != nil {
		return "", err
	}
	return a.exports[assignmentID], nil
}

type ingestServiceStub struct {
	mu      sync.Mutex
	ingests []IngestExportParams
	failFor map[string]error
}

func (s *ingestServiceStub) IngestExport(ctx context.Context, params IngestExportParams) (dto.IngestResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[params.AssignmentExternalID]; err != nil {
		return dto.IngestResponse{}, err
	}
	s.ingests = append(s.ingests, params)
	return dto.IngestResponse{StudentsProcessed: 1, SubmissionsProcessed: 1}, nil
}

type summaryServiceStub struct {
	rebuilds int
	failErr  error
}

func (s *summaryServiceStub) Rebuild(ctx context.Context, courseExternalID string) (dto.RebuildResult, error) {
	s.rebuilds++
	if s.failErr != nil {
		return dto.RebuildResult{}, s.failErr
	}
	return dto.RebuildResult{AssignmentsCount: 3, StudentsCount: 12}, nil
}

func (s *summaryServiceStub) Summary(ctx context.Context, courseExternalID string) (dto.SummaryResponse, error) {
	return dto.EmptySummary(), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	stages []string
}

func (p *recordingPublisher) PublishProgress(event events.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, event.Stage)
}

func syncTestRegistry(t *testing.T) *config.CourseRegistry {
	t.Helper()
	registry, err := config.ParseCourseRegistry([]byte(syncTestConfig))
	require.NoError(t, err)
	return registry
}

func quickRetry() source.RetryPolicy {
	return source.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, CallTimeout: time.Second}
}

func happyAdapters() map[string]source.Adapter {
	return map[string]source.Adapter{
		"gradebook": &fakeAdapter{
			name: "gradebook",
			assignments: []source.AssignmentRef{
				{ExternalID: "1", Title: "Lab 1"},
				{ExternalID: "2", Title: "Quiz 1"},
			},
			exports: map[string]string{"1": "csv-lab1", "2": "csv-quiz1"},
		},
		"assessment": &fakeAdapter{
			name:        "assessment",
			assignments: []source.AssignmentRef{{ExternalID: "7", Title: "Midterm"}},
			exports:     map[string]string{"7": "csv-midterm"},
		},
	}
}

func TestSyncCourseHappyPath(t *testing.T) {
	ingest := &ingestServiceStub{}
	summary := &summaryServiceStub{}
	publisher := &recordingPublisher{}
	svc := NewSyncService(syncTestRegistry(t), happyAdapters(), ingest, summary, quickRetry(), publisher, zerolog.Nop())

	report, err := svc.SyncCourse(context.Background(), "cs101-fa26")
	require.NoError(t, err)
	require.True(t, report.OverallSuccess)
	require.Len(t, report.Results, 3)
	require.Equal(t, "gradebook", report.Results[0].Source)
	require.Equal(t, "assessment", report.Results[1].Source)
	require.Equal(t, "summary", report.Results[2].Source)
	for _, result := range report.Results {
		require.True(t, result.Success)
	}

	require.Len(t, ingest.ingests, 3)
	require.Equal(t, "gradebook:1", ingest.ingests[0].AssignmentExternalID)
	require.Equal(t, "csv-lab1", ingest.ingests[0].RawExport)
	require.Equal(t, "Intro CS", ingest.ingests[0].Metadata.Name)
	require.Equal(t, 1, summary.rebuilds)

	require.Contains(t, publisher.stages, events.StageStarted)
	require.Contains(t, publisher.stages, events.StageIngested)
	require.Contains(t, publisher.stages, events.StageCompleted)
}

func TestSyncCourseUnknownCourse(t *testing.T) {
	svc := NewSyncService(syncTestRegistry(t), happyAdapters(), &ingestServiceStub{}, &summaryServiceStub{}, quickRetry(), nil, zerolog.Nop())

	_, err := svc.SyncCourse(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrCourseConfigNotFound)
}

func TestSyncCourseIsolatesSourceFailure(t *testing.T) {
	adapters := happyAdapters()
	adapters["gradebook"].(*fakeAdapter).listErr = source.ErrUnauthorized

	ingest := &ingestServiceStub{}
	summary := &summaryServiceStub{}
	svc := NewSyncService(syncTestRegistry(t), adapters, ingest, summary, quickRetry(), nil, zerolog.Nop())

	report, err := svc.SyncCourse(context.Background(), "cs101-fa26")
	require.NoError(t, err)
	require.False(t, report.OverallSuccess)

	require.False(t, report.Results[0].Success)
	require.Contains(t, report.Results[0].Message, "failed to list assignments")

	// The other source and the summary rebuild still ran.
	require.True(t, report.Results[1].Success)
	require.True(t, report.Results[2].Success)
	require.Len(t, ingest.ingests, 1)
	require.Equal(t, 1, summary.rebuilds)
}

func TestSyncCourseIsolatesAssignmentFailure(t *testing.T) {
	adapters := happyAdapters()
	adapters["gradebook"].(*fakeAdapter).fetchErr = map[string]error{"1": errors.New("boom")}

	ingest := &ingestServiceStub{}
	svc := NewSyncService(syncTestRegistry(t), adapters, ingest, &summaryServiceStub{}, quickRetry(), nil, zerolog.Nop())

	report, err := svc.SyncCourse(context.Background(), "cs101-fa26")
	require.NoError(t, err)
	require.True(t, report.OverallSuccess)

	gradebook := report.Results[0]
	require.True(t, gradebook.Success)
	require.Equal(t, "synced 1 of 2 assignments", gradebook.Message)
	require.Contains(t, gradebook.Details, "failures")

	// Quiz 1 from gradebook plus the assessment midterm still landed.
	require.Len(t, ingest.ingests, 2)
}

func TestSyncCourseMissingAdapter(t *testing.T) {
	adapters := happyAdapters()
	delete(adapters, "assessment")

	svc := NewSyncService(syncTestRegistry(t), adapters, &ingestServiceStub{}, &summaryServiceStub{}, quickRetry(), nil, zerolog.Nop())

	report, err := svc.SyncCourse(context.Background(), "cs101-fa26")
	require.NoError(t, err)
	require.False(t, report.OverallSuccess)
	require.False(t, report.Results[1].Success)
	require.Contains(t, report.Results[1].Message, "no adapter configured")
}

func TestSyncCourseReportsUnknownConfiguredSource(t *testing.T) {
	raw := `{
	  "courses": [
	    {
	      "id": "cs101-fa26",
	      "sources": {
	        "gradebook": {"course_id": "90210"},
	        "gradebok": {"course_id": "90210"}
	      }
	    }
	  ]
	}`
	registry, err := config.ParseCourseRegistry([]byte(raw))
	require.NoError(t, err)

	svc := NewSyncService(registry, happyAdapters(), &ingestServiceStub{}, &summaryServiceStub{}, quickRetry(), nil, zerolog.Nop())

	report, err := svc.SyncCourse(context.Background(), "cs101-fa26")
	require.NoError(t, err)
	require.False(t, report.OverallSuccess)

	// The typo shows up as its own failed entry instead of vanishing.
	require.Len(t, report.Results, 3)
	require.Equal(t, "gradebok", report.Results[1].Source)
	require.False(t, report.Results[1].Success)
	require.Contains(t, report.Results[1].Message, "unknown source")
	require.True(t, report.Results[0].Success)
	require.True(t, report.Results[2].Success)
}

func TestSyncCourseFailsWhenSummaryRebuildFails(t *testing.T) {
	summary := &summaryServiceStub{failErr: errors.New("db down")}
	svc := NewSyncService(syncTestRegistry(t), happyAdapters(), &ingestServiceStub{}, summary, quickRetry(), nil, zerolog.Nop())

	report, err := svc.SyncCourse(context.Background(), "cs101-fa26")
	require.NoError(t, err)
	require.False(t, report.OverallSuccess)
	last := report.Results[len(report.Results)-1]
	require.Equal(t, "summary", last.Source)
	require.False(t, last.Success)
}

func TestSyncCourseRejectsConcurrentRuns(t *testing.T) {
	adapters := happyAdapters()
	gate := make(chan struct{})
	started := make(chan struct{})
	gradebook := adapters["gradebook"].(*fakeAdapter)
	gradebook.block = gate
	gradebook.started = started
	adapters["assessment"].(*fakeAdapter).block = gate

	svc := NewSyncService(syncTestRegistry(t), adapters, &ingestServiceStub{}, &summaryServiceStub{}, quickRetry(), nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncCourse(context.Background(), "cs101-fa26")
		done <- err
	}()

	// Wait until the background run holds the per-course lock before asking
	// for a second one.
	<-started
	_, err := svc.SyncCourse(context.Background(), "cs101-fa26")
	require.ErrorIs(t, err, ErrSyncInProgress)

	close(gate)
	require.NoError(t, <-done)

	// Once the first run finishes the lock is released.
	_, err = svc.SyncCourse(context.Background(), "cs101-fa26")
	require.NoError(t, err)
}
