package jsonschema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outcomeSchema = `{
	"type": "object",
	"required": ["kind", "failures"],
	"properties": {
		"kind": {"const": "Invalid"},
		"failures": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["field", "message"],
				"properties": {
					"field": {"type": "string"},
					"message": {"type": "string"}
				}
			}
		}
	}
}`

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)

	_, err = Compile(`not json`)
	assert.Error(t, err)
}

func TestSchema_ValidateBytes(t *testing.T) {
	schema, err := Compile(outcomeSchema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantErr   string
	}{
		{
			name:      "invalid outcome",
			body:      `{"kind":"Invalid","isValid":false,"failures":[{"field":"Email","message":"must be a valid email address"}]}`,
			wantValid: true,
		},
		{
			name:    "valid outcome does not match",
			body:    `{"kind":"Valid","isValid":true,"failures":[]}`,
			wantErr: "/kind",
		},
		{
			name:    "missing failures",
			body:    `{"kind":"Invalid"}`,
			wantErr: "failures",
		},
		{
			name:    "not json",
			body:    `Validation failed: Email: must be a valid email address`,
			wantErr: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, errs := schema.ValidateBytes([]byte(tt.body))
			assert.Equal(t, tt.wantValid, ok)
			if tt.wantValid {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Contains(t, errs.Error(), tt.wantErr)
		})
	}
}

func TestSchema_AssertsFormat(t *testing.T) {
	schema, err := Compile(`{"type":"object","properties":{"email":{"type":"string","format":"email"}}}`)
	require.NoError(t, err)

	ok, _ := schema.ValidateBytes([]byte(`{"email":"user@example.com"}`))
	assert.True(t, ok)

	ok, errs := schema.ValidateBytes([]byte(`{"email":"invalid_email#123"}`))
	assert.False(t, ok)
	assert.Contains(t, errs.Error(), "/email")
}

func TestValidate_OneShot(t *testing.T) {
	ok, errs, err := Validate(`{"kind":"Invalid","failures":[{"field":"Email","message":"x"}]}`, outcomeSchema)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, errs)

	_, _, err = Validate(`{}`, `{"type": 12}`)
	assert.Error(t, err)
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "", ValidationErrors{}.Error())
	errs := ValidationErrors{errors.New("a"), errors.New("b")}
	assert.Equal(t, "a; b", errs.Error())
}
