package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// GradebookConfig contains credentials for the scraped gradebook platform.
type GradebookConfig struct {
	BaseURL  string
	Email    string
	Password string
}

// GradebookSource fetches per-assignment CSV score exports from the
// gradebook platform. The platform has no real API; it authenticates with a
// session cookie and answers HTML login pages instead of HTTP 401 when the
// session is gone, so responses are content-sniffed before use.
// Courses sync concurrently against one shared adapter, so the session flag
// is guarded. Holding the lock across login also collapses simultaneous
// re-authentication into one request.
type GradebookSource struct {
	cfg    GradebookConfig
	client *http.Client
	logger zerolog.Logger

	mu       sync.Mutex
	loggedIn bool
}

// NewGradebookSource constructs the adapter.
func NewGradebookSource(cfg GradebookConfig, logger zerolog.Logger) (*GradebookSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gradebook base url must not be empty")
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("gradebook credentials must be provided")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &GradebookSource{
		cfg:    cfg,
		client: &http.Client{Timeout: 90 * time.Second, Jar: jar},
		logger: logger.With().Str("component", "gradebook_source").Logger(),
	}, nil
}

// Name implements Adapter.
func (s *GradebookSource) Name() string { return "gradebook" }

func (s *GradebookSource) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("session[email]", s.cfg.Email)
	form.Set("session[password]", s.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gradebook login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gradebook login returned status %d", resp.StatusCode)
	}

	s.logger.Debug().Msg("gradebook session established")
	return nil
}

func (s *GradebookSource) ensureSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loggedIn {
		return nil
	}
	if err := s.login(ctx); err != nil {
		return err
	}
	s.loggedIn = true
	return nil
}

func (s *GradebookSource) dropSession() {
	s.mu.Lock()
	s.loggedIn = false
	s.mu.Unlock()
}

// ListAssignments implements Adapter.
func (s *GradebookSource) ListAssignments(ctx context.Context, courseID string) ([]AssignmentRef, error) {
	if err := s.ensureSession(ctx); err != nil {
		return nil, err
	}

	body, err := s.fetch(ctx, fmt.Sprintf("%s/courses/%s/assignments.json", s.cfg.BaseURL, courseID))
	if err != nil {
		return nil, err
	}

	var payload []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("gradebook assignment list is not valid JSON: %w", err)
	}

	refs := make([]AssignmentRef, 0, len(payload))
	for _, item := range payload {
		refs = append(refs, AssignmentRef{ExternalID: item.ID, Title: item.Title})
	}
	return refs, nil
}

// FetchExport implements Adapter. An HTML body means the platform bounced us
// to its login page; that is an authorization failure, not a malformed
// export.
func (s *GradebookSource) FetchExport(ctx context.Context, courseID, assignmentID string) (string, error) {
	if err := s.ensureSession(ctx); err != nil {
		return "", err
	}

	body, err := s.fetch(ctx, fmt.Sprintf("%s/courses/%s/assignments/%s/scores.csv", s.cfg.BaseURL, courseID, assignmentID))
	if err != nil {
		return "", err
	}

	if detected := mimetype.Detect(body); detected.Is("text/html") {
		s.dropSession()
		return "", fmt.Errorf("gradebook returned a login page instead of a CSV export: %w", ErrUnauthorized)
	}

	return string(body), nil
}

func (s *GradebookSource) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gradebook request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.dropSession()
		return nil, ErrUnauthorized
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("gradebook returned status %d for %s", resp.StatusCode, rawURL)
	}

	return io.ReadAll(resp.Body)
}
