package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// topicSchema describes one topic file.
const topicSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "subtopics"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "subtopics": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "difficulty", "estimated_minutes"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "difficulty": {"type": "integer", "minimum": 1, "maximum": 3},
          "estimated_minutes": {"type": "integer", "minimum": 1},
          "prerequisites": {"type": "array", "items": {"type": "string"}, "uniqueItems": true},
          "examples": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(topicSchema)

// validateDocument checks a decoded YAML document against the topic schema.
func validateDocument(doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("running schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
}
