// Package source contains the adapters that fetch raw grade exports from the
// external platforms. Adapters are thin I/O wrappers: their only contract
// with the ingestion core is a list of assignments and a raw tabular export
// string per assignment.
package source

import (
	"context"
	"errors"
)

// AssignmentRef identifies one assignment as the source platform knows it.
type AssignmentRef struct {
	ExternalID string
	Title      string
}

// Adapter is implemented by each grade source. All calls must respect the
// context deadline; the sync orchestrator wraps every call in a bounded
// retry policy and never lets an adapter hang a sync.
type Adapter interface {
	Name() string
	ListAssignments(ctx context.Context, courseID string) ([]AssignmentRef, error)
	FetchExport(ctx context.Context, courseID, assignmentID string) (string, error)
}

// ErrUnauthorized indicates the platform rejected our credentials. Not
// retryable; the whole source fails immediately.
var ErrUnauthorized = errors.New("source rejected credentials")

// ErrRateLimited indicates the platform throttled us. Retryable with
// backoff.
var ErrRateLimited = errors.New("source rate limit exceeded")
