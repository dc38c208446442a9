package structuring

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema describes the StructuredRecord shape. Extra keys are tolerated;
// wrong types and missing collections are not.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["applicant", "underwritingSections", "summary"],
  "properties": {
    "applicant": {
      "type": "object",
      "properties": {
        "name":  {"type": ["string", "null"]},
        "dob":   {"type": ["string", "null"]},
        "state": {"type": ["string", "null"]}
      }
    },
    "underwritingSections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["section"],
        "properties": {
          "section":  {"type": "string"},
          "findings": {"type": "array", "items": {"$ref": "#/$defs/text"}}
        }
      }
    },
    "summary": {
      "type": "object",
      "properties": {
        "disclosureSummary": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "heading": {"type": "string"},
              "bullets": {"type": "array", "items": {"$ref": "#/$defs/text"}}
            }
          }
        },
        "redFlags": {"type": "array", "items": {"$ref": "#/$defs/text"}}
      }
    }
  },
  "$defs": {
    "text": {
      "type": "object",
      "required": ["text"],
      "properties": {"text": {"type": "string"}}
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", strings.NewReader(recordSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateRecordJSON checks data against the record schema.
func ValidateRecordJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
