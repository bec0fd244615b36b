package dto

import "time"

// SourceResult captures the outcome of syncing one source (or the final
// summary rebuild step) during a course sync run.
type SourceResult struct {
	Source    string                 `json:"source"`
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SyncReport is the full report of a course sync run. OverallSuccess is true
// only when every per-source result succeeded.
type SyncReport struct {
	CourseID       string         `json:"course_id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Results        []SourceResult `json:"results"`
	OverallSuccess bool           `json:"overall_success"`
}
