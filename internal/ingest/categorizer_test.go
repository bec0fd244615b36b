package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategorizePracticeIsNeverCategorized(t *testing.T) {
	rules := []CategoryRule{{Name: "Quest", Patterns: []string{"quiz"}}}

	require.Nil(t, Categorize("Practice_Quiz 2", rules))
	require.Nil(t, Categorize("practice quiz 2", rules))
	require.Nil(t, Categorize("  Practice Midterm", rules))
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	rules := []CategoryRule{
		{Name: "Quest", Patterns: []string{"lecture"}},
		{Name: "Labs", Patterns: []string{"lab"}},
	}

	category := Categorize("Lecture Lab 1", rules)
	require.NotNil(t, category)
	require.Equal(t, "Quest", *category)
}

func TestCategorizeMatchesSubstringsCaseInsensitively(t *testing.T) {
	rules := []CategoryRule{{Name: "Labs", Patterns: []string{"LAB"}}}

	category := Categorize("lab_03 robots", rules)
	require.NotNil(t, category)
	require.Equal(t, "Labs", *category)
}

func TestCategorizeReturnsNilWhenNothingMatches(t *testing.T) {
	rules := []CategoryRule{{Name: "Labs", Patterns: []string{"lab"}}}

	require.Nil(t, Categorize("Final Reflection", rules))
}

func TestCategorizeFallsBackToDefaultRules(t *testing.T) {
	category := Categorize("Lab 1", nil)
	require.NotNil(t, category)
	require.Equal(t, "Labs", *category)

	category = Categorize("Quiz 4", nil)
	require.NotNil(t, category)
	require.Equal(t, "Quest", *category)
}

func TestCategoryPriorityOrdering(t *testing.T) {
	require.Equal(t, 1, CategoryPriority("Quiz 3"))
	require.Equal(t, 1, CategoryPriority("Lecture 12"))
	require.Equal(t, 2, CategoryPriority("Midterm"))
	require.Equal(t, 4, CategoryPriority("Project 2: Spelling Bee"))
	require.Equal(t, 5, CategoryPriority("Lab 7"))
	require.Equal(t, unrankedPriority, CategoryPriority("Extra Credit Essay"))
}

func TestFirstNumberExtraction(t *testing.T) {
	require.Equal(t, 10, FirstNumber("Lab 10"))
	require.Equal(t, 2, FirstNumber("Project 2: Spelling Bee 3000"))
	require.Equal(t, 0, FirstNumber("Midterm"))
}
