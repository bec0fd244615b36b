package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradehub-api/internal/ingest"
	"github.com/noah-isme/gradehub-api/internal/repository"
)

const sampleExportCSV = "Name,SID,Email,Total Score,Max Points,Status,Lateness (H:M:S)\n" +
	"Ada Lovelace,100001,ada@example.edu,41.5,50,Graded,00:00:00\n" +
	"Grace Hopper,100002,grace@example.edu,,50,Ungraded,01:10:00\n" +
	"Missing Person,100003,missing@example.edu,,50,Missing,00:00:00\n"

type ingestRepoStub struct {
	params  repository.IngestParams
	calls   int
	failErr error
}

func (s *ingestRepoStub) IngestAssignment(ctx context.Context, params repository.IngestParams) (repository.IngestStats, error) {
	s.calls++
	s.params = params
	if s.failErr != nil {
		return repository.IngestStats{}, s.failErr
	}
	submitted := 0
	for _, record := range params.Records {
		if !record.Missing {
			submitted++
		}
	}
	return repository.IngestStats{
		StudentsProcessed:    len(params.Records),
		SubmissionsProcessed: submitted,
	}, nil
}

func TestIngestExportNormalizesAndCategorizes(t *testing.T) {
	repo := &ingestRepoStub{}
	svc := NewIngestService(repo, validator.New(), zerolog.Nop())

	resp, err := svc.IngestExport(context.Background(), IngestExportParams{
		CourseExternalID:     "cs101-fa26",
		AssignmentExternalID: "gradebook:42",
		AssignmentTitle:      "Lab 3: Pointers",
		Source:               "gradebook",
		RawExport:            sampleExportCSV,
		Metadata:             repository.CourseMetadata{Name: "Intro CS"},
	})
	require.NoError(t, err)

	// The Missing row stays on the roster but yields no submission.
	require.Len(t, repo.params.Records, 3)
	require.True(t, repo.params.Records[2].Missing)
	require.Equal(t, 3, resp.StudentsProcessed)
	require.Equal(t, 2, resp.SubmissionsProcessed)

	require.Equal(t, "cs101-fa26", repo.params.CourseExternalID)
	require.Equal(t, "gradebook:42", repo.params.AssignmentExternalID)
	require.Equal(t, "Intro CS", repo.params.CourseMetadata.Name)
	require.NotNil(t, repo.params.Category)
	require.Equal(t, "Labs", *repo.params.Category)
}

func TestIngestExportHonorsCustomCategoryRules(t *testing.T) {
	repo := &ingestRepoStub{}
	svc := NewIngestService(repo, validator.New(), zerolog.Nop())

	_, err := svc.IngestExport(context.Background(), IngestExportParams{
		CourseExternalID:     "cs101-fa26",
		AssignmentExternalID: "gradebook:9",
		AssignmentTitle:      "Worksheet 2",
		RawExport:            sampleExportCSV,
		CategoryRules:        []ingest.CategoryRule{{Name: "Homework", Patterns: []string{"worksheet"}}},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.params.Category)
	require.Equal(t, "Homework", *repo.params.Category)
}

func TestIngestExportRejectsMissingFields(t *testing.T) {
	repo := &ingestRepoStub{}
	svc := NewIngestService(repo, validator.New(), zerolog.Nop())

	_, err := svc.IngestExport(context.Background(), IngestExportParams{
		CourseExternalID: "cs101-fa26",
	})
	require.Error(t, err)
	require.Zero(t, repo.calls)
}

func TestIngestExportPropagatesRepositoryFailure(t *testing.T) {
	repo := &ingestRepoStub{failErr: errors.New("deadlock")}
	svc := NewIngestService(repo, validator.New(), zerolog.Nop())

	_, err := svc.IngestExport(context.Background(), IngestExportParams{
		CourseExternalID:     "cs101-fa26",
		AssignmentExternalID: "gradebook:42",
		AssignmentTitle:      "Lab 3",
		RawExport:            sampleExportCSV,
	})
	require.ErrorContains(t, err, "deadlock")
}

func TestIngestExportRejectsMalformedExport(t *testing.T) {
	repo := &ingestRepoStub{}
	svc := NewIngestService(repo, validator.New(), zerolog.Nop())

	_, err := svc.IngestExport(context.Background(), IngestExportParams{
		CourseExternalID:     "cs101-fa26",
		AssignmentExternalID: "gradebook:42",
		AssignmentTitle:      "Lab 3",
		RawExport:            "\n",
	})
	require.Error(t, err)
	require.Zero(t, repo.calls)
}
