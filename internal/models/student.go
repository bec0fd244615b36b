package models

import "time"

// Student represents a learner enrolled in a course. Identity within a course
// is the email address; the platform SID is advisory metadata because exports
// occasionally ship rows with blank or reused SIDs.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:uq_course_student" json:"course_id"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:uq_course_student" json:"email"`
	SID       string    `gorm:"size:64;index" json:"sid"`
	LegalName string    `gorm:"size:255" json:"legal_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Course    Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
