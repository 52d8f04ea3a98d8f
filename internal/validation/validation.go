// Package validation holds the request model and the rule engine both
// benchmark cases run against.
//
// Rules are declared as struct tags and evaluated by go-playground/validator.
// The engine is exercised in two modes:
//
//   - collect: every rule is evaluated and failures are returned as an Outcome
//   - abortive: the first failed evaluation panics with *ValidationFailed
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CreateUserRequest is the request validated by both cases.
//
// It is passed by value everywhere, so neither the validator nor the caller
// can change it once NewCreateUserRequest returns.
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// NewCreateUserRequest builds a request for the given email.
func NewCreateUserRequest(email string) CreateUserRequest {
	return CreateUserRequest{Email: email}
}

// Kind tags an Outcome.
type Kind string

const (
	KindValid   Kind = "Valid"
	KindInvalid Kind = "Invalid"
)

// Failure describes one failed rule.
type Failure struct {
	Field          string `json:"field"`
	Rule           string `json:"rule"`
	Message        string `json:"message"`
	AttemptedValue string `json:"attemptedValue"`
}

// Outcome is the result of a collect-mode validation.
type Outcome struct {
	Kind     Kind      `json:"kind"`
	IsValid  bool      `json:"isValid"`
	Failures []Failure `json:"failures,omitempty"`
}

// Valid reports whether no rule failed.
func (o Outcome) Valid() bool {
	return o.Kind == KindValid
}

// Reason joins the failures as "Field: message" pairs.
func (o Outcome) Reason() string {
	if len(o.Failures) == 1 {
		return o.Failures[0].Field + ": " + o.Failures[0].Message
	}
	parts := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// String renders the outcome the way the benchmark cases report it,
// e.g. Invalid(Email: must be a valid email address).
func (o Outcome) String() string {
	if o.Valid() {
		return string(KindValid)
	}
	return string(KindInvalid) + "(" + o.Reason() + ")"
}

// ValidationFailed is the payload of an abortive validation.
type ValidationFailed struct {
	Field    string
	Reason   string
	Failures []Failure
}

func (e *ValidationFailed) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Field+": "+f.Message)
	}
	if len(parts) == 0 {
		parts = append(parts, e.Field+": "+e.Reason)
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}

// Validator evaluates CreateUserRequest rules. It is safe for concurrent use.
type Validator struct {
	engine *validator.Validate
}

// New builds a Validator. Struct metadata is cached by the engine, so build
// it once and share it.
func New() *Validator {
	return &Validator{
		engine: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateE runs every rule and returns the collected outcome. The error is
// non-nil only when the engine itself could not evaluate the request.
func (v *Validator) ValidateE(req CreateUserRequest) (Outcome, error) {
	err := v.engine.Struct(req)
	if err == nil {
		return Outcome{Kind: KindValid, IsValid: true}, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Outcome{}, fmt.Errorf("evaluate rules: %w", err)
	}

	return Outcome{Kind: KindInvalid, Failures: toFailures(fieldErrs)}, nil
}

// Validate is ValidateE for the hot path. An engine error means the request
// type itself is broken, which no caller can recover from.
func (v *Validator) Validate(req CreateUserRequest) Outcome {
	outcome, err := v.ValidateE(req)
	if err != nil {
		panic(err)
	}
	return outcome
}

// ValidateAndPanic runs the rules and panics with *ValidationFailed if any
// of them fails.
func (v *Validator) ValidateAndPanic(req CreateUserRequest) {
	err := v.engine.Struct(req)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		panic(fmt.Errorf("evaluate rules: %w", err))
	}

	failures := toFailures(fieldErrs)
	panic(&ValidationFailed{
		Field:    failures[0].Field,
		Reason:   failures[0].Message,
		Failures: failures,
	})
}

func toFailures(fieldErrs validator.ValidationErrors) []Failure {
	failures := make([]Failure, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, Failure{
			Field:          fe.Field(),
			Rule:           fe.Tag(),
			Message:        MessageFor(fe.Tag(), fe.Param()),
			AttemptedValue: fmt.Sprint(fe.Value()),
		})
	}
	return failures
}

// MessageFor maps a validator tag to a human readable message.
func MessageFor(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", param)
	case "max":
		return fmt.Sprintf("must be at most %s characters", param)
	default:
		return fmt.Sprintf("failed on the '%s' rule", tag)
	}
}
