package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/gradehub-api/internal/models"
)

// Migrate applies the schema for the canonical grade store and the summary
// projection.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Course{},
		&models.Assignment{},
		&models.Student{},
		&models.Submission{},
		&models.SummaryEntry{},
	)
}
