package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Export is a parsed raw tabular grade export: a header plus one row per
// student, each row a column-name-to-raw-value map. The first positional
// column always carries the student's display name, whatever its header says
// (some platforms prefix it with an encoding artifact).
type Export struct {
	Columns    []string
	NameColumn string
	Rows       []map[string]string
}

// reservedColumns maps each canonical field to the header spellings the
// supported platforms use for it. Resolution happens once per export; every
// column outside this table (and outside the name column) is treated as a
// per-question score column.
var reservedColumns = map[string][]string{
	ColSID:             {"SID", "Student ID", "UIN"},
	ColEmail:           {"Email", "Email Address"},
	ColTotalScore:      {"Total Score", "Score"},
	ColMaxPoints:       {"Max Points", "Points Possible"},
	ColStatus:          {"Status"},
	ColSubmissionID:    {"Submission ID"},
	ColSubmissionTime:  {"Submission Time", "Submitted At"},
	ColLateness:        {"Lateness (H:M:S)", "Lateness"},
	ColViewCount:       {"View Count"},
	ColSubmissionCount: {"Submission Count"},
	ColSections:        {"Sections", "Section"},
}

// Canonical column keys used after alias resolution.
const (
	ColSID             = "SID"
	ColEmail           = "Email"
	ColTotalScore      = "Total Score"
	ColMaxPoints       = "Max Points"
	ColStatus          = "Status"
	ColSubmissionID    = "Submission ID"
	ColSubmissionTime  = "Submission Time"
	ColLateness        = "Lateness"
	ColViewCount       = "View Count"
	ColSubmissionCount = "Submission Count"
	ColSections        = "Sections"
)

// ParseExport reads a raw CSV export into an Export. Ragged rows are padded or
// truncated to the header width rather than rejected; a missing header is the
// only fatal condition.
func ParseExport(content string) (*Export, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("export has no header row: %w", err)
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("export header is empty")
	}

	export := &Export{
		Columns:    columns,
		NameColumn: columns[0],
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed export row: %w", err)
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		export.Rows = append(export.Rows, row)
	}

	return export, nil
}

// columnIndex resolves the actual header spelling for each canonical field.
type columnIndex map[string]string

func resolveColumns(columns []string) columnIndex {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}

	index := make(columnIndex, len(reservedColumns))
	for canonical, aliases := range reservedColumns {
		for _, alias := range aliases {
			if _, ok := present[alias]; ok {
				index[canonical] = alias
				break
			}
		}
	}
	return index
}

// get returns the raw trimmed value of a canonical field for the given row.
func (idx columnIndex) get(row map[string]string, canonical string) string {
	header, ok := idx[canonical]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[header])
}

// reserved reports whether the header belongs to the reserved set for this
// export, including the positional name column.
func (idx columnIndex) reserved(header, nameColumn string) bool {
	if header == nameColumn {
		return true
	}
	for _, resolved := range idx {
		if resolved == header {
			return true
		}
	}
	return false
}
