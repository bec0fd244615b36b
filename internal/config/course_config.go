package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/gradehub-api/internal/ingest"
)

// courseConfigSchema constrains the course configuration file before it is
// decoded. Validation failures at startup beat nil lookups at sync time.
const courseConfigSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["courses"],
  "properties": {
    "courses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "sources"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "department": {"type": "string"},
          "course_number": {"type": "string"},
          "semester": {"type": "string"},
          "year": {"type": "string"},
          "instructor": {"type": "string"},
          "sources": {
            "type": "object",
            "minProperties": 1,
            "additionalProperties": {
              "type": "object",
              "required": ["course_id"],
              "properties": {
                "course_id": {"type": "string", "minLength": 1}
              }
            }
          },
          "categories": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "patterns"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "patterns": {
                  "type": "array",
                  "minItems": 1,
                  "items": {"type": "string", "minLength": 1}
                }
              }
            }
          }
        }
      }
    }
  }
}`

// CourseSource binds a course to its identifier inside one external source.
type CourseSource struct {
	CourseID string `json:"course_id"`
}

// CourseConfig describes one course the sync pipeline knows how to pull.
// Sources is keyed by adapter name. An empty Categories list means the
// built-in category rules apply.
type CourseConfig struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Department   string                  `json:"department"`
	CourseNumber string                  `json:"course_number"`
	Semester     string                  `json:"semester"`
	Year         string                  `json:"year"`
	Instructor   string                  `json:"instructor"`
	Sources      map[string]CourseSource `json:"sources"`
	Categories   []ingest.CategoryRule   `json:"categories"`
}

type courseConfigFile struct {
	Courses []CourseConfig `json:"courses"`
}

// CourseRegistry resolves course configurations by external course ID.
type CourseRegistry struct {
	byID map[string]CourseConfig
}

// LoadCourseRegistry reads and validates the course configuration file.
func LoadCourseRegistry(path string) (*CourseRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course config: %w", err)
	}

	return ParseCourseRegistry(raw)
}

// ParseCourseRegistry validates raw course configuration JSON against the
// schema and builds the registry.
func ParseCourseRegistry(raw []byte) (*CourseRegistry, error) {
	schema, err := jsonschema.CompileString("courses.schema.json", courseConfigSchema)
	if err != nil {
		return nil, fmt.Errorf("compile course config schema: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse course config: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("invalid course config: %w", err)
	}

	var file courseConfigFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode course config: %w", err)
	}

	registry := &CourseRegistry{byID: make(map[string]CourseConfig, len(file.Courses))}
	for _, course := range file.Courses {
		if _, exists := registry.byID[course.ID]; exists {
			return nil, fmt.Errorf("duplicate course id %q in course config", course.ID)
		}
		registry.byID[course.ID] = course
	}

	return registry, nil
}

// Lookup returns the configuration for a course, if known.
func (r *CourseRegistry) Lookup(courseID string) (CourseConfig, bool) {
	course, ok := r.byID[courseID]
	return course, ok
}

// IDs lists all configured course IDs.
func (r *CourseRegistry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}
