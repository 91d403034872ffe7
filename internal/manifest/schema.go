package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema is the authoritative JSON Schema for schemaVersion 1.0.
// toolkit manifests verify and the round-trip tests validate against it.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://adlift.io/schemas/toolkit-manifest-1.0.json",
  "type": "object",
  "required": [
    "schemaVersion", "runId", "startedAt", "finishedAt", "durationMs",
    "status", "exitCode", "executionMode", "tty", "runtime",
    "invocation", "safety", "steps", "results"
  ],
  "properties": {
    "schemaVersion": {"const": "1.0"},
    "runId": {"type": "string", "minLength": 36, "maxLength": 36},
    "startedAt": {"type": "string", "format": "date-time"},
    "finishedAt": {"type": "string", "format": "date-time"},
    "durationMs": {"type": "integer", "minimum": 0},
    "status": {"enum": ["SUCCESS", "FAILED", "BLOCKED", "CANCELLED"]},
    "exitCode": {"enum": [0, 1, 2, 10, 78, 126, 130]},
    "executionMode": {"enum": ["CLI", "API"]},
    "tty": {"type": "boolean"},
    "runtime": {
      "type": "object",
      "required": ["toolVersion", "goVersion", "os", "pid"],
      "properties": {
        "toolVersion": {"type": "string"},
        "goVersion": {"type": "string"},
        "os": {"type": "string"},
        "pid": {"type": "integer"}
      }
    },
    "invocation": {
      "type": "object",
      "required": ["command", "classification"],
      "properties": {
        "command": {"type": "string", "minLength": 1},
        "classification": {"enum": ["READ", "WRITE", "DESTRUCTIVE"]},
        "args": {"type": "object", "additionalProperties": {"type": "string"}},
        "flags": {"type": "object", "additionalProperties": {"type": "string"}},
        "confirmation": {
          "type": "object",
          "required": ["required", "received"],
          "properties": {
            "required": {"type": "boolean"},
            "received": {"type": "boolean"},
            "method": {"type": "string"}
          }
        }
      }
    },
    "safety": {
      "type": "object",
      "required": ["gates", "environment", "database", "blocked"],
      "properties": {
        "gates": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name", "passed", "reasonCode", "reason"],
            "properties": {
              "name": {"type": "string"},
              "passed": {"type": "boolean"},
              "reasonCode": {"enum": ["allowed", "missing", "blocked", "unknown"]},
              "reason": {"type": "string"}
            }
          }
        },
        "environment": {
          "type": "object",
          "required": ["tag", "writable"],
          "properties": {
            "tag": {"type": "string"},
            "writable": {"type": "boolean"}
          }
        },
        "database": {
          "type": "object",
          "required": ["host", "database", "class"],
          "properties": {
            "host": {"type": "string"},
            "database": {"type": "string"},
            "class": {"enum": ["ALLOWED", "BLOCKED", "UNKNOWN"]}
          }
        },
        "blocked": {"type": "boolean"},
        "blockedGate": {"type": "string"},
        "blockedReason": {"type": "string"}
      }
    },
    "tenant": {
      "type": "object",
      "required": ["id", "slug"],
      "properties": {
        "id": {"type": "string"},
        "slug": {"type": "string"},
        "displayName": {"type": "string"},
        "resolvedBy": {"type": "string"}
      }
    },
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "startedAt", "finishedAt", "durationMs", "status"],
        "properties": {
          "name": {"type": "string"},
          "startedAt": {"type": "string", "format": "date-time"},
          "finishedAt": {"type": "string", "format": "date-time"},
          "durationMs": {"type": "integer", "minimum": 0},
          "status": {"enum": ["SUCCESS", "FAILED", "SKIPPED"]},
          "summary": {"type": "string"},
          "metrics": {"type": "object", "additionalProperties": {"type": "integer"}},
          "error": {"$ref": "#/$defs/sanitizedError"}
        }
      }
    },
    "results": {
      "type": "object",
      "required": [
        "plannedWrites", "appliedWrites", "externalCalls",
        "filesystemWrites", "warnings", "errors"
      ],
      "properties": {
        "plannedWrites": {"type": "integer", "minimum": 0},
        "appliedWrites": {"type": "integer", "minimum": 0},
        "externalCalls": {"type": "integer", "minimum": 0},
        "filesystemWrites": {"type": "integer", "minimum": 0},
        "warnings": {"type": "array", "items": {"type": "string"}, "maxItems": 51},
        "errors": {"type": "array", "items": {"$ref": "#/$defs/sanitizedError"}, "maxItems": 11}
      }
    }
  },
  "$defs": {
    "sanitizedError": {
      "type": "object",
      "required": ["code", "message", "isRecoverable"],
      "properties": {
        "code": {"type": "string"},
        "message": {"type": "string"},
        "isRecoverable": {"type": "boolean"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

const schemaURL = "https://adlift.io/schemas/toolkit-manifest-1.0.json"

func compile() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("load manifest schema: %w", err)
	}
	return c.Compile(schemaURL)
}

// ValidateDocument checks serialized manifest JSON against the schema
func ValidateDocument(data []byte) error {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = compile()
	})
	if schemaErr != nil {
		return fmt.Errorf("compile manifest schema: %w", schemaErr)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	return compiledSchema.Validate(doc)
}
