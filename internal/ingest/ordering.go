package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// Reporting order groups quests first and unrecognized work last. The
// priority is derived from the title rather than the stored category so that
// uncategorized assignments still land in a stable position.
var categoryPriorities = []struct {
	fragment string
	priority int
}{
	{"lecture", 1},
	{"quiz", 1},
	{"midterm", 2},
	{"postterm", 3},
	{"posterm", 3},
	{"project", 4},
	{"lab", 5},
	{"discussion", 6},
}

const unrankedPriority = 99

var digitRun = regexp.MustCompile(`\d+`)

// CategoryPriority returns the reporting-order rank for an assignment title.
func CategoryPriority(title string) int {
	lowered := strings.ToLower(title)
	for _, entry := range categoryPriorities {
		if strings.Contains(lowered, entry.fragment) {
			return entry.priority
		}
	}
	return unrankedPriority
}

// FirstNumber extracts the first embedded integer from an assignment title,
// so "Lab 10" sorts after "Lab 2". Titles without a number sort as 0.
func FirstNumber(title string) int {
	match := digitRun.FindString(title)
	if match == "" {
		return 0
	}
	number, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return number
}
