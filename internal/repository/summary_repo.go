package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gradehub-api/internal/models"
)

// SummaryRepository persists the materialized score matrix. Entries are
// replaced via upsert on the (course, student, assignment) key so repeated
// rebuilds converge to identical contents.
type SummaryRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.SummaryEntry, error)
	ReplaceForCourse(ctx context.Context, courseID uint, entries []models.SummaryEntry) error
}

type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository instantiates a GORM-backed repository.
func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.SummaryEntry, error) {
	var entries []models.SummaryEntry
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("student_id ASC, assignment_id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *summaryRepository) ReplaceForCourse(ctx context.Context, courseID uint, entries []models.SummaryEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(entries) == 0 {
			return tx.Where("course_id = ?", courseID).Delete(&models.SummaryEntry{}).Error
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "course_id"},
				{Name: "student_id"},
				{Name: "assignment_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).CreateInBatches(entries, 500).Error; err != nil {
			return err
		}

		// Cells absent from the incoming batch would otherwise linger
		// forever; the rebuild owns the whole slice.
		pairs := make([][]interface{}, 0, len(entries))
		for _, entry := range entries {
			pairs = append(pairs, []interface{}{entry.StudentID, entry.AssignmentID})
		}

		return tx.Where("course_id = ?", courseID).
			Where("(student_id, assignment_id) NOT IN ?", pairs).
			Delete(&models.SummaryEntry{}).Error
	})
}
