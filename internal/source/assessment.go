package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gradehub-api/internal/models"
)

// AssessmentConfig contains the API token for the assessment platform.
type AssessmentConfig struct {
	BaseURL  string
	APIToken string
}

// AssessmentSource pulls gradebook data from the assessment platform's REST
// API. The platform speaks JSON; the adapter renders each assessment's rows
// into the shared tabular export shape so the normalizer stays
// source-agnostic.
type AssessmentSource struct {
	cfg    AssessmentConfig
	client *http.Client
	logger zerolog.Logger
}

// NewAssessmentSource constructs the adapter.
func NewAssessmentSource(cfg AssessmentConfig, logger zerolog.Logger) (*AssessmentSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("assessment base url must not be empty")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("assessment api token must be provided")
	}

	return &AssessmentSource{
		cfg:    cfg,
		client: &http.Client{Timeout: 90 * time.Second},
		logger: logger.With().Str("component", "assessment_source").Logger(),
	}, nil
}

// Name implements Adapter.
func (s *AssessmentSource) Name() string { return "assessment" }

// ListAssignments implements Adapter.
func (s *AssessmentSource) ListAssignments(ctx context.Context, courseID string) ([]AssignmentRef, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s/api/v1/course_instances/%s/assessments", s.cfg.BaseURL, courseID))
	if err != nil {
		return nil, err
	}

	var payload []struct {
		ID    int64  `json:"assessment_id"`
		Label string `json:"label"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("assessment list is not valid JSON: %w", err)
	}

	refs := make([]AssignmentRef, 0, len(payload))
	for _, item := range payload {
		title := item.Title
		if title == "" {
			title = item.Label
		}
		refs = append(refs, AssignmentRef{ExternalID: strconv.FormatInt(item.ID, 10), Title: title})
	}
	return refs, nil
}

type assessmentScoreRow struct {
	UserName string   `json:"user_name"`
	UserUID  string   `json:"user_uid"`
	UserID   int64    `json:"user_id"`
	Score    *float64 `json:"points"`
	MaxScore *float64 `json:"max_points"`
	Started  bool     `json:"started"`
}

// FetchExport implements Adapter. The platform's JSON score rows are
// rewritten as the shared CSV export shape.
func (s *AssessmentSource) FetchExport(ctx context.Context, courseID, assignmentID string) (string, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s/api/v1/course_instances/%s/assessments/%s/assessment_instances", s.cfg.BaseURL, courseID, assignmentID))
	if err != nil {
		return "", err
	}

	var rows []assessmentScoreRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("assessment scores are not valid JSON: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"Name", "SID", "Email", "Total Score", "Max Points", "Status"}); err != nil {
		return "", err
	}

	for _, row := range rows {
		status := "Graded"
		if !row.Started {
			status = models.StatusMissing
		}
		record := []string{
			row.UserName,
			strconv.FormatInt(row.UserID, 10),
			row.UserUID,
			formatScore(row.Score),
			formatScore(row.MaxScore),
			status,
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func formatScore(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func (s *AssessmentSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Private-Token", s.cfg.APIToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assessment request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("assessment api returned status %d for %s", resp.StatusCode, rawURL)
	}

	return io.ReadAll(resp.Body)
}
