package story

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// templateSchema is the canonical shape of a story template file.
const templateSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "title", "gender", "pages"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1},
    "gender": {"type": "string", "enum": ["girl", "boy", "any"]},
    "pages": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["number", "caption"],
        "properties": {
          "number": {"type": "integer", "minimum": 1},
          "caption": {"type": "string", "minLength": 1},
          "prompt": {"type": "string"},
          "scene": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("story.json", strings.NewReader(templateSchema)); err != nil {
		panic(fmt.Sprintf("failed to load story schema: %v", err))
	}
	schema, err := compiler.Compile("story.json")
	if err != nil {
		panic(fmt.Sprintf("failed to compile story schema: %v", err))
	}
	return schema
}

// ParseTemplate decodes and validates a story template YAML document.
func ParseTemplate(data []byte) (*Template, error) {
	// Validate the generic document first so schema errors name the
	// offending field instead of surfacing as decode errors.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid story YAML: %w", err)
	}

	normalized, err := normalizeForValidation(doc)
	if err != nil {
		return nil, err
	}
	if err := compiledSchema.Validate(normalized); err != nil {
		return nil, fmt.Errorf("story template does not match schema: %w", err)
	}

	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to decode story template: %w", err)
	}
	if err := checkPageNumbers(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// normalizeForValidation round-trips through JSON so YAML's type system
// doesn't leak into schema validation.
func normalizeForValidation(doc any) (any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize story document: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize story document: %w", err)
	}
	return out, nil
}

// checkPageNumbers requires pages numbered 1..n in order, no gaps.
func checkPageNumbers(tpl *Template) error {
	for i, p := range tpl.Pages {
		if p.Number != i+1 {
			return fmt.Errorf("story %q: page %d numbered %d, want %d", tpl.ID, i, p.Number, i+1)
		}
	}
	return nil
}
