// Package jsonschema validates JSON documents against JSON Schemas.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Schema is a compiled schema. It is safe for concurrent use, so compile
// once and validate many documents.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile parses and compiles a schema document. Formats such as "email"
// are asserted, not just annotated.
func Compile(schemaStr string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	if err := compiler.AddResource("schema.json", strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	return &Schema{compiled: compiled}, nil
}

// ValidateBytes validates a JSON document. It returns true with no errors
// when the document conforms.
func (s *Schema) ValidateBytes(data []byte) (bool, ValidationErrors) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return false, ValidationErrors{fmt.Errorf("invalid JSON: %w", err)}
	}

	if err := s.compiled.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return false, extractValidationErrors(validationErr)
		}
		return false, ValidationErrors{err}
	}

	return true, nil
}

// Validate compiles schemaStr and validates jsonStr against it.
// An error is returned only when the schema itself is unusable.
func Validate(jsonStr, schemaStr string) (bool, ValidationErrors, error) {
	schema, err := Compile(schemaStr)
	if err != nil {
		return false, nil, err
	}
	ok, errs := schema.ValidateBytes([]byte(jsonStr))
	return ok, errs, nil
}

// extractValidationErrors flattens the leaf causes of a validation error
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	if len(err.Causes) == 0 {
		return ValidationErrors{fmt.Errorf("validation error at %s: %s", locationOf(err), err.Message)}
	}

	var errors ValidationErrors
	for _, childErr := range err.Causes {
		errors = append(errors, extractValidationErrors(childErr)...)
	}
	return errors
}

func locationOf(err *jsonschema.ValidationError) string {
	if err.InstanceLocation == "" {
		return "/"
	}
	return err.InstanceLocation
}
