package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ResponseConfig contains credentials for the classroom-response platform.
type ResponseConfig struct {
	BaseURL  string
	Username string
	Password string
}

// ResponseSource pulls participation scores from the classroom-response
// platform. Each polling session shows up as its own assignment; the
// platform already exports sessions as CSV. The bearer token is shared by
// concurrent course syncs and therefore guarded.
type ResponseSource struct {
	cfg    ResponseConfig
	client *http.Client
	logger zerolog.Logger

	mu    sync.Mutex
	token string
}

// NewResponseSource constructs the adapter.
func NewResponseSource(cfg ResponseConfig, logger zerolog.Logger) (*ResponseSource, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("response platform base url must not be empty")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("response platform credentials must be provided")
	}

	return &ResponseSource{
		cfg:    cfg,
		client: &http.Client{Timeout: 90 * time.Second},
		logger: logger.With().Str("component", "response_source").Logger(),
	}, nil
}

// Name implements Adapter.
func (s *ResponseSource) Name() string { return "responses" }

// session returns the cached bearer token, authenticating when none is held.
// Concurrent callers with an expired token perform one auth request, not one
// each.
func (s *ResponseSource) session(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	token, err := s.authenticate(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return token, nil
}

func (s *ResponseSource) dropToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *ResponseSource) authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    s.cfg.Username,
		"password": s.cfg.Password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v2/auth", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("response platform auth failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("response platform auth returned status %d", resp.StatusCode)
	}

	var auth struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("response platform auth body is not valid JSON: %w", err)
	}
	if auth.AccessToken == "" {
		return "", ErrUnauthorized
	}

	return auth.AccessToken, nil
}

// ListAssignments implements Adapter. Sessions are the platform's unit of
// graded work.
func (s *ResponseSource) ListAssignments(ctx context.Context, courseID string) ([]AssignmentRef, error) {
	token, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.get(ctx, fmt.Sprintf("%s/v2/courses/%s/sessions", s.cfg.BaseURL, url.PathEscape(courseID)), token)
	if err != nil {
		return nil, err
	}

	var sessions []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("session list is not valid JSON: %w", err)
	}

	refs := make([]AssignmentRef, 0, len(sessions))
	for _, session := range sessions {
		refs = append(refs, AssignmentRef{ExternalID: session.ID, Title: session.Name})
	}
	return refs, nil
}

// FetchExport implements Adapter.
func (s *ResponseSource) FetchExport(ctx context.Context, courseID, sessionID string) (string, error) {
	token, err := s.session(ctx)
	if err != nil {
		return "", err
	}

	body, err := s.get(ctx, fmt.Sprintf("%s/v2/courses/%s/sessions/%s/export.csv", s.cfg.BaseURL, url.PathEscape(courseID), url.PathEscape(sessionID)), token)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (s *ResponseSource) get(ctx context.Context, rawURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("response platform request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.dropToken()
		return nil, ErrUnauthorized
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("response platform returned status %d for %s", resp.StatusCode, rawURL)
	}

	return io.ReadAll(resp.Body)
}
