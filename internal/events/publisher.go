// Package events emits advisory sync progress notifications over NATS.
// Delivery is best effort: a failed publish is logged and never fails the
// sync run that produced it.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Progress stages, in the order a sync run moves through them.
const (
	StageStarted   = "started"
	StageSource    = "source"
	StageIngested  = "ingested"
	StageSummary   = "summary"
	StageCompleted = "completed"
)

// ProgressEvent describes one step of a running course sync.
type ProgressEvent struct {
	CourseID   string    `json:"course_id"`
	Stage      string    `json:"stage"`
	Source     string    `json:"source,omitempty"`
	Assignment string    `json:"assignment,omitempty"`
	Message    string    `json:"message,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Publisher fans sync progress out to interested listeners.
type Publisher interface {
	PublishProgress(event ProgressEvent)
}

type natsPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewNATSPublisher builds a publisher over an existing NATS connection.
// Events for a course go to "<subjectBase>.<course_id>".
func NewNATSPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) Publisher {
	if subjectBase == "" {
		subjectBase = "gradehub.sync"
	}
	return &natsPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "sync_events").Logger(),
	}
}

func (p *natsPublisher) PublishProgress(event ProgressEvent) {
	if p.conn == nil {
		return
	}
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode sync progress event")
		return
	}

	subject := p.subjectBase + "." + event.CourseID
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Debug().Err(err).Str("subject", subject).Msg("failed to publish sync progress event")
	}
}

// NopPublisher discards all events. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishProgress(ProgressEvent) {}
