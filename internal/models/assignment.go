package models

import "time"

// Assignment represents a graded assignment within a course. ExternalID is the
// identifier the source platform uses and is unique only within its course.
type Assignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CourseID     uint       `gorm:"not null;uniqueIndex:uq_course_assignment" json:"course_id"`
	ExternalID   string     `gorm:"size:64;not null;uniqueIndex:uq_course_assignment" json:"external_id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Category     *string    `gorm:"size:64" json:"category"`
	MaxPoints    *float64   `json:"max_points"`
	LastSyncedAt *time.Time `gorm:"index" json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Course       Course     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
