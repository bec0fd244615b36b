package models

import "time"

// Course represents one synced course, keyed by the identifier the gradebook
// platform assigns to it.
type Course struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ExternalID   string     `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	Name         string     `gorm:"size:255" json:"name"`
	Department   string     `gorm:"size:64" json:"department"`
	CourseNumber string     `gorm:"size:32" json:"course_number"`
	Semester     string     `gorm:"size:32" json:"semester"`
	Year         string     `gorm:"size:8" json:"year"`
	Instructor   string     `gorm:"size:255" json:"instructor"`
	StudentCount int        `json:"student_count"`
	LastSyncedAt *time.Time `gorm:"index" json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
