package inference

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "inference-result.json"

var resultSchema = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []string{"medicine_code", "confidence", "description", "alternatives"},
	"properties": map[string]any{
		"medicine_code": map[string]any{"type": "string", "minLength": 1, "maxLength": 50},
		"confidence":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"description":   map[string]any{"type": "string"},
		"alternatives": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"medicine_code", "confidence"},
				"properties": map[string]any{
					"medicine_code": map[string]any{"type": "string", "minLength": 1},
					"confidence":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
			},
		},
	},
}

// Validator checks serialized results against the result schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	b, err := json.Marshal(resultSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks raw JSON.
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("result does not match schema: %w", err)
	}
	return nil
}

// Encode serializes a result and validates the encoded form.
func (v *Validator) Encode(result *Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("result is nil")
	}
	if result.Alternatives == nil {
		result.Alternatives = []Alternative{}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if err := v.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}
