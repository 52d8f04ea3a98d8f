// Package cases contains the two measured code paths and the registry the
// harness iterates over.
package cases

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wesleyorama2/throwbench/internal/validation"
)

// InvalidEmail is the fixed input of every case. It always fails the email
// rule, so both cases measure the failure path.
const InvalidEmail = "invalid_email#123"

// PassedMarker is what Abortive returns when validation passes.
const PassedMarker = "validation passed"

// Names of the default cases.
const (
	NameWithException    = "with-exception"
	NameWithoutException = "without-exception"
)

// ErrUnexpectedAbort is returned when Abortive recovers something other than
// a validation failure.
var ErrUnexpectedAbort = errors.New("unexpected abort")

// Abortive validates in abortive mode and converts the recovered failure
// into its message. It never panics.
func Abortive(v *validation.Validator, email string) (string, error) {
	return runAbortive(func() {
		req := validation.NewCreateUserRequest(email)
		v.ValidateAndPanic(req)
	})
}

func runAbortive(validate func()) (message string, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if vf, ok := r.(*validation.ValidationFailed); ok {
			message, err = vf.Error(), nil
			return
		}
		message, err = "", fmt.Errorf("%w: %v", ErrUnexpectedAbort, r)
	}()

	validate()
	return PassedMarker, nil
}

// NonAbortive validates in collect mode and returns the outcome.
func NonAbortive(v *validation.Validator, email string) validation.Outcome {
	req := validation.NewCreateUserRequest(email)
	return v.Validate(req)
}

// NonAbortiveE is NonAbortive rendered as a case result. Engine errors are
// returned rather than panicking.
func NonAbortiveE(v *validation.Validator, email string) (string, error) {
	return runNonAbortive(func() (validation.Outcome, error) {
		return v.ValidateE(validation.NewCreateUserRequest(email))
	})
}

func runNonAbortive(validate func() (validation.Outcome, error)) (string, error) {
	outcome, err := validate()
	if err != nil {
		return "", err
	}
	return outcome.String(), nil
}

// Func is a measurable unit. It returns a normalized outcome string; an error
// means the run is broken and must stop.
type Func func() (string, error)

// Case is a named Func.
type Case struct {
	Name string
	Run  Func
}

// Registry keeps cases in registration order.
type Registry struct {
	mu    sync.RWMutex
	cases []Case
	index map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a case. Names must be unique and non-empty.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("case name is required")
	}
	if fn == nil {
		return fmt.Errorf("case %q: nil func", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[name]; exists {
		return fmt.Errorf("case %q already registered", name)
	}
	r.index[name] = len(r.cases)
	r.cases = append(r.cases, Case{Name: name, Run: fn})
	return nil
}

// Lookup returns the case registered under name.
func (r *Registry) Lookup(name string) (Case, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return Case{}, false
	}
	return r.cases[i], true
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.cases))
	for i, c := range r.cases {
		names[i] = c.Name
	}
	return names
}

// Select returns the named cases in registry order, or every case when
// names is empty.
func (r *Registry) Select(names ...string) ([]Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		out := make([]Case, len(r.cases))
		copy(out, r.cases)
		return out, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("unknown case %q", name)
		}
		wanted[name] = true
	}

	out := make([]Case, 0, len(wanted))
	for _, c := range r.cases {
		if wanted[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}

// Default registers the abortive and non-abortive cases against v.
func Default(v *validation.Validator) *Registry {
	r := NewRegistry()

	// Names are constant and distinct, so Register cannot fail here.
	_ = r.Register(NameWithException, func() (string, error) {
		return Abortive(v, InvalidEmail)
	})
	_ = r.Register(NameWithoutException, func() (string, error) {
		return NonAbortiveE(v, InvalidEmail)
	})

	return r
}
