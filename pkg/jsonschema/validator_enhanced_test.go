package jsonschema

import (
	"strings"
	"testing"
)

func TestExtractValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		schema     string
		minErrors  int
		wantInText []string
	}{
		{
			name: "Multiple validation errors",
			schema: `{
				"type": "object",
				"required": ["field", "rule", "message"],
				"properties": {
					"field": { "type": "string" },
					"rule": { "type": "string" },
					"message": { "type": "string" }
				}
			}`,
			json:       `{"field": 42}`,
			minErrors:  2,
			wantInText: []string{"/field", "rule", "message"},
		},
		{
			name: "Nested array item",
			schema: `{
				"type": "object",
				"properties": {
					"failures": {
						"type": "array",
						"items": { "type": "object", "required": ["field"] }
					}
				}
			}`,
			json:       `{"failures": [{"field": "Email"}, {"rule": "email"}]}`,
			minErrors:  1,
			wantInText: []string{"/failures/1"},
		},
		{
			name: "No validation errors",
			schema: `{
				"type": "object",
				"properties": {
					"kind": { "type": "string" },
					"isValid": { "type": "boolean" }
				}
			}`,
			json: `{"kind": "Invalid", "isValid": false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, errs, err := Validate(tt.json, tt.schema)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			if tt.minErrors == 0 {
				if !valid || len(errs) != 0 {
					t.Errorf("Expected valid document, got %v", errs)
				}
				return
			}

			if valid {
				t.Fatalf("Expected invalid document")
			}
			if len(errs) < tt.minErrors {
				t.Errorf("Expected at least %d errors, got %d: %v", tt.minErrors, len(errs), errs)
			}
			for _, want := range tt.wantInText {
				if !strings.Contains(errs.Error(), want) {
					t.Errorf("Expected %q in %q", want, errs.Error())
				}
			}
		})
	}
}

func TestFormats(t *testing.T) {
	tests := []struct {
		name          string
		schema        string
		json          string
		expectedValid bool
	}{
		{
			name:          "Valid email format",
			schema:        `{"type": "object", "properties": {"attemptedValue": {"type": "string", "format": "email"}}}`,
			json:          `{"attemptedValue": "user@example.com"}`,
			expectedValid: true,
		},
		{
			name:          "Invalid email format",
			schema:        `{"type": "object", "properties": {"attemptedValue": {"type": "string", "format": "email"}}}`,
			json:          `{"attemptedValue": "invalid_email#123"}`,
			expectedValid: false,
		},
		{
			name:          "Valid date-time format",
			schema:        `{"type": "object", "properties": {"startedAt": {"type": "string", "format": "date-time"}}}`,
			json:          `{"startedAt": "2026-01-02T03:04:05Z"}`,
			expectedValid: true,
		},
		{
			name:          "Invalid date-time format",
			schema:        `{"type": "object", "properties": {"startedAt": {"type": "string", "format": "date-time"}}}`,
			json:          `{"startedAt": "02/01/2026"}`,
			expectedValid: false,
		},
		{
			name:          "Valid uuid format",
			schema:        `{"type": "object", "properties": {"runId": {"type": "string", "format": "uuid"}}}`,
			json:          `{"runId": "6f1c1a52-0b8e-4d7e-9a3e-2b1f0c7d9e11"}`,
			expectedValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, errs, err := Validate(tt.json, tt.schema)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if valid != tt.expectedValid {
				t.Errorf("Expected valid=%v, got %v (errors: %v)", tt.expectedValid, valid, errs)
			}
		})
	}
}
