package serializer

import (
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/stratmind/formulagraph/pkg/schema"
)

// documentSchemaJSON is the JSON Schema for the persisted formula
// document. Embedded as a constant to avoid filesystem dependencies.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://stratmind.dev/schemas/formula.json",
  "type": "object",
  "required": ["version", "name", "blocks", "connections", "metadata"],
  "properties": {
    "version": {
      "type": "string",
      "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+$"
    },
    "name": { "type": "string" },
    "description": { "type": "string" },
    "blocks": {
      "type": "array",
      "items": { "$ref": "#/$defs/block" }
    },
    "connections": {
      "type": "array",
      "items": { "$ref": "#/$defs/connection" }
    },
    "metadata": {
      "type": "object",
      "required": ["createdAt", "updatedAt"],
      "properties": {
        "id": { "type": "string" },
        "createdAt": { "type": "string", "format": "date-time" },
        "updatedAt": { "type": "string", "format": "date-time" }
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false,
  "$defs": {
    "block": {
      "type": "object",
      "required": ["id", "kind", "name", "position", "size"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "kind": {
          "type": "string",
          "enum": ["indicator", "signal", "condition", "action", "group"]
        },
        "category": { "type": "string" },
        "name": { "type": "string" },
        "description": { "type": "string" },
        "position": {
          "type": "object",
          "required": ["x", "y"],
          "properties": {
            "x": { "type": "number" },
            "y": { "type": "number" }
          },
          "additionalProperties": false
        },
        "size": {
          "type": "object",
          "required": ["width", "height"],
          "properties": {
            "width": { "type": "number" },
            "height": { "type": "number" }
          },
          "additionalProperties": false
        },
        "parameters": {
          "type": "array",
          "items": { "$ref": "#/$defs/parameter" }
        },
        "ports": {
          "type": "array",
          "items": { "$ref": "#/$defs/port" }
        },
        "indicator": { "$ref": "#/$defs/indicator_payload" },
        "condition": { "$ref": "#/$defs/condition_payload" },
        "action": { "$ref": "#/$defs/action_payload" },
        "group": { "$ref": "#/$defs/group_payload" }
      },
      "additionalProperties": false
    },
    "parameter": {
      "type": "object",
      "required": ["id", "name", "type"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string" },
        "type": { "type": "string", "enum": ["number", "string", "boolean"] },
        "value": {},
        "min": { "type": "number" },
        "max": { "type": "number" },
        "step": { "type": "number" },
        "options": { "type": "array", "items": { "type": "string" } }
      },
      "additionalProperties": false
    },
    "port": {
      "type": "object",
      "required": ["id", "name", "direction", "data_type"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string" },
        "direction": { "type": "string", "enum": ["input", "output"] },
        "data_type": {
          "type": "string",
          "enum": ["number", "boolean", "signal", "condition", "string"]
        },
        "required": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "connection": {
      "type": "object",
      "required": ["from_block_id", "from_port", "to_block_id", "to_port"],
      "properties": {
        "from_block_id": { "type": "string", "minLength": 1 },
        "from_port": { "type": "string", "minLength": 1 },
        "to_block_id": { "type": "string", "minLength": 1 },
        "to_port": { "type": "string", "minLength": 1 }
      },
      "additionalProperties": false
    },
    "indicator_payload": {
      "type": "object",
      "required": ["indicator_type"],
      "properties": {
        "indicator_type": { "type": "string" },
        "inputs": { "type": "array", "items": { "type": "string" } },
        "outputs": { "type": "array", "items": { "type": "string" } }
      },
      "additionalProperties": false
    },
    "condition_payload": {
      "type": "object",
      "required": ["operator"],
      "properties": {
        "operator": { "type": "string", "enum": ["AND", "OR", "NOT"] },
        "operands": { "type": "array", "items": { "type": "string" } },
        "guard": {
          "type": "object",
          "required": ["dialect", "source"],
          "properties": {
            "dialect": { "type": "string", "enum": ["cel", "expr", "jq"] },
            "source": { "type": "string" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    },
    "action_payload": {
      "type": "object",
      "required": ["action_type"],
      "properties": {
        "action_type": { "type": "string" }
      },
      "additionalProperties": false
    },
    "group_payload": {
      "type": "object",
      "properties": {
        "children": { "type": "array", "items": { "type": "string" } },
        "collapsed": { "type": "boolean" }
      },
      "additionalProperties": false
    }
  }
}`

var (
	compileOnce    sync.Once
	documentSchema *jsonschema.Schema
	compileErr     error
)

// compiledSchema compiles the embedded document schema exactly once.
func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat()

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal document schema: %w", err)
			return
		}
		if err := c.AddResource("https://stratmind.dev/schemas/formula.json", doc); err != nil {
			compileErr = fmt.Errorf("add document schema resource: %w", err)
			return
		}
		documentSchema, compileErr = c.Compile("https://stratmind.dev/schemas/formula.json")
	})
	return documentSchema, compileErr
}

// validateStructure checks raw document bytes against the JSON Schema.
func validateStructure(data []byte) error {
	compiled, err := compiledSchema()
	if err != nil {
		return schema.NewError(schema.ErrCodeMalformed, "document schema unavailable").WithCause(err)
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewError(schema.ErrCodeMalformed, "document is not valid JSON").WithCause(err)
	}

	if err := compiled.Validate(doc); err != nil {
		return toGraphError(err)
	}
	return nil
}

// toGraphError converts a jsonschema.ValidationError into a GraphError
// carrying every leaf violation.
func toGraphError(err error) *schema.GraphError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeMalformed, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeMalformed, verr.Error())
	}

	msg := violations[0]
	if len(violations) > 1 {
		msg = fmt.Sprintf("document failed validation with %d violations", len(violations))
	}
	return schema.NewError(schema.ErrCodeMalformed, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
