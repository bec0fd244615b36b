package dto

// IngestRequest carries a raw export straight to the ingest pipeline,
// bypassing the source adapters. Used by the direct-ingest endpoint.
type IngestRequest struct {
	AssignmentTitle string `json:"assignment_title" validate:"required"`
	Export          string `json:"export" validate:"required"`
	CourseName      string `json:"course_name"`
	Department      string `json:"department"`
	CourseNumber    string `json:"course_number"`
	Semester        string `json:"semester"`
	Year            string `json:"year"`
	Instructor      string `json:"instructor"`
}

// IngestResponse reports how many rows survived normalization and landed in
// the store.
type IngestResponse struct {
	StudentsProcessed    int `json:"students_processed"`
	SubmissionsProcessed int `json:"submissions_processed"`
}
