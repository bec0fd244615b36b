package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Record is the canonical, typed representation of one student's row within
// one assignment export. Numeric fields are nil when the raw value was empty
// or unparsable; a nil score must never be flattened to zero.
type Record struct {
	StudentKey      string
	Email           string
	LegalName       string
	Status          string
	Missing         bool
	TotalScore      *float64
	MaxPoints       *float64
	SubmissionID    string
	SubmittedAt     *time.Time
	Lateness        string
	ViewCount       *int
	SubmissionCount *int
	QuestionScores  map[string]string
}

// Normalize converts a parsed export into canonical records. It is a pure
// function of its input: normalizing a fresh parse of the same content yields
// the same records in the same order.
//
// Rows are dropped, silently, when they cannot be attributed to a student
// (blank identifier or blank email). A dropped row must not block the rest of
// the export. Rows the source marked as never submitted are kept with the
// Missing flag set: the student is still on the roster, only the submission
// is absent.
func Normalize(export *Export) []Record {
	if export == nil {
		return nil
	}

	index := resolveColumns(export.Columns)
	records := make([]Record, 0, len(export.Rows))

	for _, row := range export.Rows {
		sid := index.get(row, ColSID)
		if sid == "" {
			continue
		}

		email := index.get(row, ColEmail)
		if email == "" {
			continue
		}

		status := index.get(row, ColStatus)

		record := Record{
			StudentKey:      sid,
			Email:           email,
			LegalName:       strings.TrimSpace(row[export.NameColumn]),
			Status:          status,
			Missing:         strings.EqualFold(status, "missing"),
			TotalScore:      parseFloat(index.get(row, ColTotalScore)),
			MaxPoints:       parseFloat(index.get(row, ColMaxPoints)),
			SubmissionID:    index.get(row, ColSubmissionID),
			SubmittedAt:     parseSubmissionTime(index.get(row, ColSubmissionTime)),
			Lateness:        index.get(row, ColLateness),
			ViewCount:       parseInt(index.get(row, ColViewCount)),
			SubmissionCount: parseInt(index.get(row, ColSubmissionCount)),
			QuestionScores:  questionScores(row, export.NameColumn, index),
		}

		records = append(records, record)
	}

	return records
}

// questionScores collects every non-reserved, non-empty column verbatim. The
// raw text is preserved; per-question values are not type-coerced.
func questionScores(row map[string]string, nameColumn string, index columnIndex) map[string]string {
	scores := make(map[string]string)
	for header, value := range row {
		if index.reserved(header, nameColumn) {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		scores[header] = value
	}
	return scores
}

func parseFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseInt(raw string) *int {
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}

// submissionTimeLayouts is the ordered ladder of timestamp shapes the
// supported platforms emit. The first layout that parses wins; a value no
// layout accepts is recorded as absent, never as an error.
var submissionTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05 -0700",
	"2006-01-02 15:04:05",
	"1/2/06 3:04 PM",
	"01/02/2006 3:04 PM",
}

func parseSubmissionTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}

	cleaned := strings.TrimSpace(raw)
	for _, layout := range submissionTimeLayouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return &parsed
		}
	}
	return nil
}
