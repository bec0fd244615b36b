package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gradehub-api/internal/config"
	"github.com/noah-isme/gradehub-api/internal/database"
	"github.com/noah-isme/gradehub-api/internal/dto"
	"github.com/noah-isme/gradehub-api/internal/handler"
	"github.com/noah-isme/gradehub-api/internal/middleware"
	"github.com/noah-isme/gradehub-api/internal/repository"
	"github.com/noah-isme/gradehub-api/internal/router"
	"github.com/noah-isme/gradehub-api/internal/service"
	"github.com/noah-isme/gradehub-api/internal/source"
)

const courseConfigJSON = `{
  "courses": [
    {
      "id": "cs101-fa26",
      "name": "Intro to Computer Science",
      "semester": "Fall",
      "year": "2026",
      "sources": {
        "gradebook": {"course_id": "90210"}
      }
    }
  ]
}`

const lab1Export = "Name,SID,Email,Total Score,Max Points,Status,Lateness (H:M:S),Q1,Q2\n" +
	"Ada Lovelace,100001,ada@example.edu,41.5,50,Graded,00:00:00,20,21.5\n" +
	"Grace Hopper,100002,grace@example.edu,50,50,Graded,01:10:00,25,25\n" +
	"Gone Student,100003,gone@example.edu,,50,Missing,00:00:00,,\n"

const quiz1Export = "Name,SID,Email,Total Score,Max Points,Status\n" +
	"Ada Lovelace,100001,ada@example.edu,9,10,Graded\n"

type stubSource struct {
	assignments []source.AssignmentRef
	exports     map[string]string
}

func (s stubSource) Name() string { return "gradebook" }

func (s stubSource) ListAssignments(_ context.Context, _ string) ([]source.AssignmentRef, error) {
	return s.assignments, nil
}

func (s stubSource) FetchExport(_ context.Context, _, assignmentID string) (string, error) {
	return s.exports[assignmentID], nil
}

func setupSyncApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	registry, err := config.ParseCourseRegistry([]byte(courseConfigJSON))
	require.NoError(t, err)

	adapters := map[string]source.Adapter{
		"gradebook": stubSource{
			assignments: []source.AssignmentRef{
				{ExternalID: "1", Title: "Lab 1"},
				{ExternalID: "2", Title: "Quiz 1"},
				{ExternalID: "3", Title: "practice_Midterm"},
			},
			exports: map[string]string{
				"1": lab1Export,
				"2": quiz1Export,
				"3": quiz1Export,
			},
		},
	}

	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	ingestRepo := repository.NewIngestRepository(db)

	ingestService := service.NewIngestService(ingestRepo, validate, logger)
	summaryService := service.NewSummaryService(courseRepo, assignmentRepo, studentRepo, submissionRepo, summaryRepo, nil, 0, logger)
	syncService := service.NewSyncService(registry, adapters, ingestService, summaryService, source.DefaultRetryPolicy(), nil, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	staffSession := func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "admin")
		return c.Next()
	}

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		SyncHandler:    handler.NewSyncHandler(syncService, logger),
		SummaryHandler: handler.NewSummaryHandler(summaryService, logger),
		IngestHandler:  handler.NewIngestHandler(ingestService, summaryService, logger),
		JWTMiddleware:  staffSession,
	})

	return app
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func runSync(t *testing.T, app *fiber.App) dto.SyncReport {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/courses/cs101-fa26/sync", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decoded struct {
		Data dto.SyncReport `json:"data"`
	}
	decodeBody(t, resp, &decoded)
	return decoded.Data
}

func fetchSummary(t *testing.T, app *fiber.App) dto.SummaryResponse {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/courses/cs101-fa26/summary", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decoded struct {
		Data dto.SummaryResponse `json:"data"`
	}
	decodeBody(t, resp, &decoded)
	return decoded.Data
}

func TestSyncEndToEnd(t *testing.T) {
	app := setupSyncApp(t)

	report := runSync(t, app)
	require.True(t, report.OverallSuccess)
	require.Len(t, report.Results, 2)
	require.Equal(t, "gradebook", report.Results[0].Source)
	require.Equal(t, "summary", report.Results[1].Source)

	summary := fetchSummary(t, app)

	// Quizzes outrank labs; the practice assignment carries no category but
	// its title still places it in midterm position.
	require.Equal(t, []string{"Quiz 1", "practice_Midterm", "Lab 1"}, summary.Assignments)
	require.Equal(t, "Quest", summary.Categories["Quiz 1"])
	require.Equal(t, "Labs", summary.Categories["Lab 1"])
	require.Equal(t, "Uncategorized", summary.Categories["practice_Midterm"])
	require.Equal(t, 50.0, summary.MaxPoints["Lab 1"])

	// The Missing row still rosters the student; only the submission is
	// absent, so every one of their cells stays blank.
	require.Len(t, summary.Students, 3)
	require.Equal(t, "Ada Lovelace", summary.Students[0].LegalName)
	require.Equal(t, "Gone Student", summary.Students[1].LegalName)
	require.Equal(t, "Grace Hopper", summary.Students[2].LegalName)

	require.Equal(t, 41.5, summary.Students[0].Scores["Lab 1"])
	require.Equal(t, 9.0, summary.Students[0].Scores["Quiz 1"])
	require.Equal(t, "", summary.Students[1].Scores["Lab 1"])
	require.Equal(t, "", summary.Students[1].Scores["Quiz 1"])
	// Grace never took the quiz; her cell is blank, not zero.
	require.Equal(t, "", summary.Students[2].Scores["Quiz 1"])
}

func TestSyncEndToEndIsIdempotent(t *testing.T) {
	app := setupSyncApp(t)

	first := runSync(t, app)
	require.True(t, first.OverallSuccess)
	baseline := fetchSummary(t, app)

	second := runSync(t, app)
	require.True(t, second.OverallSuccess)
	require.Equal(t, baseline, fetchSummary(t, app))
}

func TestSummaryRejectsNothingForUnknownCourse(t *testing.T) {
	app := setupSyncApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/courses/ghost/summary", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var decoded struct {
		Data dto.SummaryResponse `json:"data"`
	}
	decodeBody(t, resp, &decoded)
	require.Empty(t, decoded.Data.Students)
	require.Empty(t, decoded.Data.Assignments)
}
