package ingest

import "strings"

// CategoryRule maps a reporting category to the name fragments that select
// it. Rules are evaluated in order; the first rule with a matching pattern
// wins regardless of match length.
type CategoryRule struct {
	Name     string   `json:"name" validate:"required"`
	Patterns []string `json:"patterns" validate:"required,min=1"`
}

// defaultCategoryRules is the built-in fallback used when a course supplies
// no category configuration of its own.
var defaultCategoryRules = []CategoryRule{
	{Name: "Quest", Patterns: []string{"lecture", "quiz"}},
	{Name: "Midterm", Patterns: []string{"midterm"}},
	{Name: "Postterm", Patterns: []string{"postterm", "posterm"}},
	{Name: "Projects", Patterns: []string{"project"}},
	{Name: "Labs", Patterns: []string{"lab"}},
	{Name: "Discussions", Patterns: []string{"discussion"}},
}

// DefaultCategoryRules returns a copy of the built-in rule set.
func DefaultCategoryRules() []CategoryRule {
	rules := make([]CategoryRule, len(defaultCategoryRules))
	copy(rules, defaultCategoryRules)
	return rules
}

// Categorize maps an assignment's display name to a category label, or nil
// when no rule matches. Categorization is advisory metadata; a nil result
// never blocks ingestion.
//
// Names starting with "practice" (after underscore and whitespace
// normalization, case-insensitive) are never categorized: practice work does
// not count toward any category.
func Categorize(name string, rules []CategoryRule) *string {
	normalized := strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	lowered := strings.ToLower(normalized)

	if strings.HasPrefix(lowered, "practice") {
		return nil
	}

	if len(rules) == 0 {
		rules = defaultCategoryRules
	}

	for _, rule := range rules {
		for _, pattern := range rule.Patterns {
			if pattern == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(pattern)) {
				category := rule.Name
				return &category
			}
		}
	}

	return nil
}
