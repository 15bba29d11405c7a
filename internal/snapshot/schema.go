package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const fileSnapshotSchema = `{
  "type": "object",
  "required": ["records"],
  "properties": {
    "_meta": {
      "type": "object",
      "properties": {
        "format": {"type": "string"},
        "count": {"type": "integer", "minimum": 0},
        "saved_at": {"type": "string"}
      }
    },
    "records": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["id", "name", "category"],
        "properties": {
          "id": {"type": "integer"},
          "name": {"type": "string"},
          "category": {"type": "string"}
        }
      }
    }
  }
}`

type schemaValidator struct {
	schema *jsonschema.Schema
}

func newSchemaValidator(schemaJSON string) (*schemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("snapshot.json")
	if err != nil {
		return nil, err
	}
	return &schemaValidator{schema: schema}, nil
}

// validate checks raw JSON against the schema before it is decoded.
func (v *schemaValidator) validate(raw []byte) error {
	var payload interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("invalid snapshot json: %w", err)
	}
	if err := v.schema.Validate(payload); err != nil {
		return fmt.Errorf("snapshot does not match schema: %w", err)
	}
	return nil
}
