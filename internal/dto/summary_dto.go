package dto

// SummaryStudent is one row of the summary read model. Scores is keyed by
// assignment title; a student with no submission for an assignment carries an
// empty string there, never a zero.
type SummaryStudent struct {
	LegalName string                 `json:"legal_name"`
	Email     string                 `json:"email"`
	Scores    map[string]interface{} `json:"scores"`
}

// SummaryResponse is the dense student-by-assignment matrix served to
// reporting consumers. Assignments appear in reporting order.
type SummaryResponse struct {
	Assignments []string                  `json:"assignments"`
	Students    []SummaryStudent          `json:"students"`
	Categories  map[string]string         `json:"categories"`
	MaxPoints   map[string]float64        `json:"max_points"`
}

// EmptySummary is what a course without data looks like: empty collections,
// never null fields.
func EmptySummary() SummaryResponse {
	return SummaryResponse{
		Assignments: []string{},
		Students:    []SummaryStudent{},
		Categories:  map[string]string{},
		MaxPoints:   map[string]float64{},
	}
}

// RebuildResult reports the dimensions of a completed summary rebuild.
type RebuildResult struct {
	AssignmentsCount int `json:"assignments_count"`
	StudentsCount    int `json:"students_count"`
}
