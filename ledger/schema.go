package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/warp/leave-register/generic"
)

// importSchema constrains structure only. Date syntax is left to Decode so a
// single bad entry is dropped instead of rejecting the whole file.
const importSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "total_days": {"type": "integer", "minimum": 0},
    "used_days": {"type": "array", "items": {"type": "string"}},
    "custom_holidays": {
      "type": "array",
      "items": {
        "oneOf": [
          {"type": "string"},
          {
            "type": "object",
            "properties": {
              "date": {"type": "string"},
              "name": {"type": "string"}
            },
            "required": ["date"]
          }
        ]
      }
    },
    "profile": {
      "type": "object",
      "properties": {
        "full_name": {"type": "string"},
        "national_id": {"type": "string"},
        "workplace": {"type": "string"},
        "company": {"type": "string"}
      }
    }
  },
  "required": ["used_days"]
}`

const importSchemaURL = "mem://leave-register/ledger-export.json"

var compiledImportSchema = mustCompileImportSchema()

func mustCompileImportSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(importSchemaURL, bytes.NewReader([]byte(importSchema))); err != nil {
		panic(fmt.Sprintf("ledger: import schema: %v", err))
	}
	s, err := c.Compile(importSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("ledger: import schema: %v", err))
	}
	return s
}

// Import reads an exported ledger file, checks it against the export schema
// and decodes it.
func Import(r io.Reader) (*Ledger, DecodeReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, DecodeReport{}, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, DecodeReport{}, fmt.Errorf("%w: ledger file is not JSON: %v", generic.ErrInvalidInput, err)
	}
	if err := compiledImportSchema.Validate(doc); err != nil {
		return nil, DecodeReport{}, fmt.Errorf("%w: ledger file: %v", generic.ErrInvalidInput, err)
	}

	return Decode(data)
}
