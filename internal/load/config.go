// Package load drives the HTTP endpoints with a fixed pool of virtual users
// and aggregates latency, throughput and check results per scenario.
package load

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/throwbench/internal/load/check"
)

// Defaults mirror a 100 VU, one minute run against a local server.
const (
	DefaultBaseURL  = "http://localhost:5000"
	DefaultVUs      = 100
	DefaultDuration = time.Minute
	DefaultTimeout  = 30 * time.Second
	DefaultMethod   = "GET"
)

// Config is the root of a load profile.
//
// Example YAML:
//
//	name: "exception cost under load"
//	baseUrl: "http://localhost:5000"
//	insecureSkipVerify: true
//	scenarios:
//	  - name: with-exception
//	    path: /test/with
//	    vus: 100
//	    duration: 1m
//	    checks:
//	      - type: status
//	        value: "400"
type Config struct {
	Name string `json:"name" yaml:"name"`

	// BaseURL is prefixed to every scenario path
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	// Timeout is the per-request timeout
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`

	// Parallel runs scenarios at the same time. Off by default so the
	// endpoints do not compete for CPU.
	Parallel bool `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	// HealthPath, when set, is polled until it answers 200 before the run.
	HealthPath string `json:"healthPath,omitempty" yaml:"healthPath,omitempty"`

	Scenarios []ScenarioConfig `json:"scenarios" yaml:"scenarios"`
}

// ScenarioConfig is one endpoint under load.
type ScenarioConfig struct {
	Name     string            `json:"name" yaml:"name"`
	Method   string            `json:"method,omitempty" yaml:"method,omitempty"`
	Path     string            `json:"path" yaml:"path"`
	VUs      int               `json:"vus,omitempty" yaml:"vus,omitempty"`
	Duration Duration          `json:"duration,omitempty" yaml:"duration,omitempty"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Checks   []check.Config    `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// LoadConfig reads a YAML (or JSON) load profile from disk.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a profile, applies defaults and validates it.
// Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "load test"
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	for i := range c.Scenarios {
		sc := &c.Scenarios[i]
		if sc.Method == "" {
			sc.Method = DefaultMethod
		}
		sc.Method = strings.ToUpper(sc.Method)
		if sc.VUs == 0 {
			sc.VUs = DefaultVUs
		}
		if sc.Duration == 0 {
			sc.Duration = Duration(DefaultDuration)
		}
	}
}

// URL returns the absolute URL of a scenario.
func (c *Config) URL(sc ScenarioConfig) string {
	if strings.HasPrefix(sc.Path, "http://") || strings.HasPrefix(sc.Path, "https://") {
		return sc.Path
	}
	return c.BaseURL + "/" + strings.TrimLeft(sc.Path, "/")
}

// TotalDuration is how long the run is expected to take.
func (c *Config) TotalDuration() time.Duration {
	var total time.Duration
	for _, sc := range c.Scenarios {
		d := sc.Duration.Std()
		if c.Parallel {
			if d > total {
				total = d
			}
			continue
		}
		total += d
	}
	return total
}

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field of a profile.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return "config validation failed: " + e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = "  - " + err.Error()
	}
	return fmt.Sprintf("config validation failed with %d errors:\n%s", len(e.Errors), strings.Join(msgs, "\n"))
}

// Add records an invalid field.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors reports whether anything was recorded.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the profile and reports every problem at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add("baseUrl", fmt.Sprintf("must be an absolute http(s) URL, got %q", c.BaseURL))
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "must be >= 0")
	}
	if len(c.Scenarios) == 0 {
		errs.Add("scenarios", "at least one scenario is required")
	}

	seen := make(map[string]bool, len(c.Scenarios))
	for i, sc := range c.Scenarios {
		prefix := fmt.Sprintf("scenarios[%d]", i)
		if sc.Name == "" {
			errs.Add(prefix+".name", "is required")
		} else if seen[sc.Name] {
			errs.Add(prefix+".name", fmt.Sprintf("duplicate scenario name %q", sc.Name))
		}
		seen[sc.Name] = true

		if sc.Path == "" {
			errs.Add(prefix+".path", "is required")
		}
		if sc.VUs <= 0 {
			errs.Add(prefix+".vus", "must be > 0")
		}
		if sc.Duration <= 0 {
			errs.Add(prefix+".duration", "must be > 0")
		}
		for j, cc := range sc.Checks {
			if _, err := check.New(cc); err != nil {
				errs.Add(fmt.Sprintf("%s.checks[%d]", prefix, j), err.Error())
			}
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
