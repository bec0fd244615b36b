package models

import "time"

// SummaryEntry is one cell of the materialized student-by-assignment score
// matrix. It is a cache over Submission and is rebuilt wholesale; it never
// serves as a source of truth.
type SummaryEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CourseID     uint      `gorm:"not null;uniqueIndex:uq_summary_cell" json:"course_id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:uq_summary_cell" json:"student_id"`
	AssignmentID uint      `gorm:"not null;uniqueIndex:uq_summary_cell" json:"assignment_id"`
	Score        *float64  `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
