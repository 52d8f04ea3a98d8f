// Package check validates load-test responses.
package check

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/throwbench/pkg/jsonschema"
)

// Type identifies a check.
type Type string

const (
	// TypeStatus compares the status code with Value.
	TypeStatus Type = "status"

	// TypeBodyContains looks for Value in the body.
	TypeBodyContains Type = "body-contains"

	// TypeJSONPath requires the gjson Path to exist and, if Value is set,
	// to equal it.
	TypeJSONPath Type = "json-path"

	// TypeJSONSchema validates the body against Schema.
	TypeJSONSchema Type = "json-schema"
)

// Config describes one check in a load profile.
type Config struct {
	Type   Type   `json:"type" yaml:"type"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Check validates one response. Implementations are safe for concurrent use.
type Check interface {
	Name() string
	Check(status int, body []byte) error
}

// Failure is returned by a failing check.
type Failure struct {
	Check   string
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("check %s failed: %s", f.Check, f.Message)
}

// New builds a check from its configuration. Schemas are compiled here,
// not per response.
func New(cfg Config) (Check, error) {
	switch cfg.Type {
	case TypeStatus:
		code, err := strconv.Atoi(cfg.Value)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("status check: invalid status code %q", cfg.Value)
		}
		return &statusCheck{want: code}, nil

	case TypeBodyContains:
		if cfg.Value == "" {
			return nil, fmt.Errorf("body-contains check: value is required")
		}
		return &bodyContainsCheck{want: []byte(cfg.Value)}, nil

	case TypeJSONPath:
		if cfg.Path == "" {
			return nil, fmt.Errorf("json-path check: path is required")
		}
		return &jsonPathCheck{path: cfg.Path, want: cfg.Value}, nil

	case TypeJSONSchema:
		if cfg.Schema == "" {
			return nil, fmt.Errorf("json-schema check: schema is required")
		}
		schema, err := jsonschema.Compile(cfg.Schema)
		if err != nil {
			return nil, fmt.Errorf("json-schema check: %w", err)
		}
		return &jsonSchemaCheck{schema: schema}, nil

	default:
		return nil, fmt.Errorf("unknown check type %q", cfg.Type)
	}
}

// NewAll builds every check in order.
func NewAll(cfgs []Config) ([]Check, error) {
	checks := make([]Check, 0, len(cfgs))
	for i, cfg := range cfgs {
		c, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("check %d: %w", i+1, err)
		}
		checks = append(checks, c)
	}
	return checks, nil
}

// Run applies checks in order and returns the first failure.
func Run(checks []Check, status int, body []byte) error {
	for _, c := range checks {
		if err := c.Check(status, body); err != nil {
			return err
		}
	}
	return nil
}

type statusCheck struct {
	want int
}

func (c *statusCheck) Name() string { return "status == " + strconv.Itoa(c.want) }

func (c *statusCheck) Check(status int, _ []byte) error {
	if status != c.want {
		return &Failure{Check: c.Name(), Message: fmt.Sprintf("got %d", status)}
	}
	return nil
}

type bodyContainsCheck struct {
	want []byte
}

func (c *bodyContainsCheck) Name() string { return fmt.Sprintf("body contains %q", c.want) }

func (c *bodyContainsCheck) Check(_ int, body []byte) error {
	if !bytes.Contains(body, c.want) {
		return &Failure{Check: c.Name(), Message: "substring not found"}
	}
	return nil
}

type jsonPathCheck struct {
	path string
	want string
}

func (c *jsonPathCheck) Name() string {
	if c.want == "" {
		return "json " + c.path + " exists"
	}
	return fmt.Sprintf("json %s == %q", c.path, c.want)
}

func (c *jsonPathCheck) Check(_ int, body []byte) error {
	if !gjson.ValidBytes(body) {
		return &Failure{Check: c.Name(), Message: "body is not valid JSON"}
	}

	result := gjson.GetBytes(body, c.path)
	if !result.Exists() {
		return &Failure{Check: c.Name(), Message: "path not found"}
	}
	if c.want != "" && result.String() != c.want {
		return &Failure{Check: c.Name(), Message: fmt.Sprintf("got %q", result.String())}
	}
	return nil
}

type jsonSchemaCheck struct {
	schema *jsonschema.Schema
}

func (c *jsonSchemaCheck) Name() string { return "json schema" }

func (c *jsonSchemaCheck) Check(_ int, body []byte) error {
	if ok, errs := c.schema.ValidateBytes(body); !ok {
		return &Failure{Check: c.Name(), Message: errs.Error()}
	}
	return nil
}
