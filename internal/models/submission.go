package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission represents one student's latest scored submission for one
// assignment. Re-ingestion of the same assignment overwrites every field; the
// most recent export is authoritative.
type Submission struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	AssignmentID    uint              `gorm:"not null;uniqueIndex:uq_assignment_student" json:"assignment_id"`
	StudentID       uint              `gorm:"not null;uniqueIndex:uq_assignment_student" json:"student_id"`
	TotalScore      *float64          `json:"total_score"`
	MaxPoints       *float64          `json:"max_points"`
	Status          string            `gorm:"size:64" json:"status"`
	SubmissionID    string            `gorm:"size:64" json:"submission_id"`
	SubmittedAt     *time.Time        `json:"submitted_at"`
	Lateness        string            `gorm:"size:32" json:"lateness"`
	ViewCount       *int              `json:"view_count"`
	SubmissionCount *int              `json:"submission_count"`
	QuestionScores  datatypes.JSONMap `gorm:"type:json" json:"question_scores"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Assignment      Assignment        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student         Student           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// StatusMissing marks a row the source reported as never submitted. Rows with
// this status are dropped before ingestion and never reach the table.
const StatusMissing = "Missing"
