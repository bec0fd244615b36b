package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gradehub-api/internal/ingest"
	"github.com/noah-isme/gradehub-api/internal/models"
)

// CourseMetadata carries the optional display fields supplied once per sync
// invocation. Empty fields never overwrite populated stored values.
type CourseMetadata struct {
	Name         string
	Department   string
	CourseNumber string
	Semester     string
	Year         string
	Instructor   string
}

// IngestParams is the unit of work for one assignment export.
type IngestParams struct {
	CourseExternalID     string
	CourseMetadata       CourseMetadata
	AssignmentExternalID string
	AssignmentTitle      string
	Category             *string
	Records              []ingest.Record
}

// IngestStats reports what one ingestion run touched.
type IngestStats struct {
	StudentsProcessed    int
	SubmissionsProcessed int
}

// IngestRepository executes the canonical upsert pipeline for one assignment
// export as a single transaction. A failure anywhere rolls back the whole
// assignment; committed data from earlier assignments is untouched.
type IngestRepository interface {
	IngestAssignment(ctx context.Context, params IngestParams) (IngestStats, error)
}

type ingestRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewIngestRepository instantiates a GORM-backed ingest repository.
func NewIngestRepository(db *gorm.DB) IngestRepository {
	return &ingestRepository{db: db, now: time.Now}
}

func (r *ingestRepository) IngestAssignment(ctx context.Context, params IngestParams) (IngestStats, error) {
	var stats IngestStats

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := r.upsertCourse(tx, params.CourseExternalID, params.CourseMetadata)
		if err != nil {
			return err
		}

		records := dedupeByStudentKey(params.Records)

		assignment, err := r.upsertAssignment(tx, course.ID, params, records)
		if err != nil {
			return err
		}

		studentIDs, err := r.upsertStudents(tx, course.ID, records)
		if err != nil {
			return err
		}
		stats.StudentsProcessed = len(studentIDs)

		processed, err := r.upsertSubmissions(tx, assignment.ID, records, studentIDs)
		if err != nil {
			return err
		}
		stats.SubmissionsProcessed = processed

		syncedAt := r.now().UTC()
		assignment.LastSyncedAt = &syncedAt
		if err := tx.Save(assignment).Error; err != nil {
			return err
		}

		return r.refreshStudentCount(tx, course)
	})
	if err != nil {
		return IngestStats{}, err
	}

	return stats, nil
}

// upsertCourse resolves or creates the course and refreshes mutable metadata.
// Populated fields are never overwritten by empty incoming values.
func (r *ingestRepository) upsertCourse(tx *gorm.DB, externalID string, meta CourseMetadata) (*models.Course, error) {
	var course models.Course
	err := tx.Where("external_id = ?", externalID).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		course = models.Course{
			ExternalID:   externalID,
			Name:         meta.Name,
			Department:   meta.Department,
			CourseNumber: meta.CourseNumber,
			Semester:     meta.Semester,
			Year:         meta.Year,
			Instructor:   meta.Instructor,
		}
		if err := tx.Create(&course).Error; err != nil {
			return nil, err
		}
		return &course, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	refresh := func(stored *string, incoming string) {
		if incoming != "" && *stored != incoming {
			*stored = incoming
			changed = true
		}
	}
	refresh(&course.Name, meta.Name)
	refresh(&course.Department, meta.Department)
	refresh(&course.CourseNumber, meta.CourseNumber)
	refresh(&course.Semester, meta.Semester)
	refresh(&course.Year, meta.Year)
	refresh(&course.Instructor, meta.Instructor)

	if changed {
		if err := tx.Save(&course).Error; err != nil {
			return nil, err
		}
	}

	return &course, nil
}

// upsertAssignment resolves or creates the assignment, refreshes the title
// and category, and applies grow-only max-points semantics: the first
// positive observation sticks and later batches may only raise it.
func (r *ingestRepository) upsertAssignment(tx *gorm.DB, courseID uint, params IngestParams, records []ingest.Record) (*models.Assignment, error) {
	batchMax := batchMaxPoints(records)

	var assignment models.Assignment
	err := tx.Where("course_id = ? AND external_id = ?", courseID, params.AssignmentExternalID).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		assignment = models.Assignment{
			CourseID:   courseID,
			ExternalID: params.AssignmentExternalID,
			Title:      params.AssignmentTitle,
			Category:   params.Category,
			MaxPoints:  batchMax,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return nil, err
		}
		return &assignment, nil
	}
	if err != nil {
		return nil, err
	}

	if params.AssignmentTitle != "" {
		assignment.Title = params.AssignmentTitle
	}
	// Category tracks the current rule config, never a stale earlier match.
	assignment.Category = params.Category

	if batchMax != nil {
		if assignment.MaxPoints == nil || *assignment.MaxPoints == 0 || *batchMax > *assignment.MaxPoints {
			assignment.MaxPoints = batchMax
		}
	}

	if err := tx.Save(&assignment).Error; err != nil {
		return nil, err
	}

	return &assignment, nil
}

func batchMaxPoints(records []ingest.Record) *float64 {
	for _, record := range records {
		if record.MaxPoints != nil && *record.MaxPoints > 0 {
			value := *record.MaxPoints
			return &value
		}
	}
	return nil
}

// dedupeByStudentKey keeps the first occurrence of each student key so one
// export cannot produce duplicate rows for the same student.
func dedupeByStudentKey(records []ingest.Record) []ingest.Record {
	seen := make(map[string]struct{}, len(records))
	deduped := make([]ingest.Record, 0, len(records))
	for _, record := range records {
		if _, ok := seen[record.StudentKey]; ok {
			continue
		}
		seen[record.StudentKey] = struct{}{}
		deduped = append(deduped, record)
	}
	return deduped
}

// upsertStudents batch-inserts unknown students keyed on (course, email),
// then refreshes sid and legal name where the export carries newer values.
// Returns the email-to-id mapping for the batch.
func (r *ingestRepository) upsertStudents(tx *gorm.DB, courseID uint, records []ingest.Record) (map[string]uint, error) {
	if len(records) == 0 {
		return map[string]uint{}, nil
	}

	rows := make([]models.Student, 0, len(records))
	emails := make([]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, models.Student{
			CourseID:  courseID,
			Email:     record.Email,
			SID:       record.StudentKey,
			LegalName: record.LegalName,
		})
		emails = append(emails, record.Email)
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "email"}},
		DoNothing: true,
	}).CreateInBatches(rows, 500).Error; err != nil {
		return nil, err
	}

	var students []models.Student
	if err := tx.Where("course_id = ? AND email IN ?", courseID, emails).Find(&students).Error; err != nil {
		return nil, err
	}

	byEmail := make(map[string]models.Student, len(students))
	ids := make(map[string]uint, len(students))
	for _, student := range students {
		byEmail[student.Email] = student
		ids[student.Email] = student.ID
	}

	for _, record := range records {
		student, ok := byEmail[record.Email]
		if !ok {
			continue
		}

		changed := false
		if record.StudentKey != "" && student.SID != record.StudentKey {
			student.SID = record.StudentKey
			changed = true
		}
		if record.LegalName != "" && student.LegalName != record.LegalName {
			student.LegalName = record.LegalName
			changed = true
		}
		if changed {
			if err := tx.Save(&student).Error; err != nil {
				return nil, err
			}
		}
	}

	return ids, nil
}

// upsertSubmissions writes the batch with full-overwrite semantics: for an
// existing (assignment, student) row every payload column takes the incoming
// value, because the latest export of an assignment is authoritative. Records
// the source marked as never submitted stay out of the submission table; they
// only contribute to the roster.
func (r *ingestRepository) upsertSubmissions(tx *gorm.DB, assignmentID uint, records []ingest.Record, studentIDs map[string]uint) (int, error) {
	rows := make([]models.Submission, 0, len(records))
	for _, record := range records {
		if record.Missing {
			continue
		}
		studentID, ok := studentIDs[record.Email]
		if !ok {
			continue
		}

		rows = append(rows, models.Submission{
			AssignmentID:    assignmentID,
			StudentID:       studentID,
			TotalScore:      record.TotalScore,
			MaxPoints:       record.MaxPoints,
			Status:          record.Status,
			SubmissionID:    record.SubmissionID,
			SubmittedAt:     record.SubmittedAt,
			Lateness:        record.Lateness,
			ViewCount:       record.ViewCount,
			SubmissionCount: record.SubmissionCount,
			QuestionScores:  questionScoresJSON(record.QuestionScores),
		})
	}

	if len(rows) == 0 {
		return 0, nil
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_score", "max_points", "status", "submission_id",
			"submitted_at", "lateness", "view_count", "submission_count",
			"question_scores", "updated_at",
		}),
	}).CreateInBatches(rows, 500).Error; err != nil {
		return 0, err
	}

	return len(rows), nil
}

func questionScoresJSON(scores map[string]string) datatypes.JSONMap {
	if len(scores) == 0 {
		return datatypes.JSONMap{}
	}
	payload := make(datatypes.JSONMap, len(scores))
	for question, value := range scores {
		payload[question] = value
	}
	return payload
}

// refreshStudentCount recomputes the cached distinct-student count from the
// store, not from the size of the current batch.
func (r *ingestRepository) refreshStudentCount(tx *gorm.DB, course *models.Course) error {
	var count int64
	if err := tx.Model(&models.Student{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
		return err
	}

	if course.StudentCount != int(count) {
		course.StudentCount = int(count)
		return tx.Save(course).Error
	}

	return nil
}
