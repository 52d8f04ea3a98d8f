package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_InvalidEmail(t *testing.T) {
	v := New()

	outcome := v.Validate(NewCreateUserRequest("invalid_email#123"))

	assert.Equal(t, KindInvalid, outcome.Kind)
	assert.False(t, outcome.IsValid)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, Failure{
		Field:          "Email",
		Rule:           "email",
		Message:        "must be a valid email address",
		AttemptedValue: "invalid_email#123",
	}, outcome.Failures[0])
	assert.Equal(t, "Invalid(Email: must be a valid email address)", outcome.String())
}

func TestValidate_Cases(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		wantKind Kind
		wantRule string
	}{
		{name: "valid address", email: "user@example.com", wantKind: KindValid},
		{name: "empty", email: "", wantKind: KindInvalid, wantRule: "required"},
		{name: "missing at", email: "user.example.com", wantKind: KindInvalid, wantRule: "email"},
		{name: "hash instead of at", email: "invalid_email#123", wantKind: KindInvalid, wantRule: "email"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := v.Validate(NewCreateUserRequest(tt.email))
			assert.Equal(t, tt.wantKind, outcome.Kind)
			if tt.wantRule == "" {
				assert.True(t, outcome.Valid())
				assert.Empty(t, outcome.Failures)
				assert.Equal(t, "Valid", outcome.String())
				return
			}
			require.NotEmpty(t, outcome.Failures)
			assert.Equal(t, tt.wantRule, outcome.Failures[0].Rule)
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	v := New()
	req := NewCreateUserRequest("invalid_email#123")

	first := v.Validate(req)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, v.Validate(req))
	}
	assert.Equal(t, "invalid_email#123", req.Email)
}

func TestValidateAndPanic(t *testing.T) {
	v := New()

	t.Run("valid request does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			v.ValidateAndPanic(NewCreateUserRequest("user@example.com"))
		})
	})

	t.Run("invalid request panics with ValidationFailed", func(t *testing.T) {
		var recovered interface{}
		func() {
			defer func() { recovered = recover() }()
			v.ValidateAndPanic(NewCreateUserRequest("invalid_email#123"))
		}()

		vf, ok := recovered.(*ValidationFailed)
		require.True(t, ok, "recovered %T, want *ValidationFailed", recovered)
		assert.Equal(t, "Email", vf.Field)
		assert.Equal(t, "must be a valid email address", vf.Reason)
		assert.Equal(t, "Validation failed: Email: must be a valid email address", vf.Error())
	})
}

func TestAbortAndCollectAgree(t *testing.T) {
	v := New()
	req := NewCreateUserRequest("invalid_email#123")

	outcome := v.Validate(req)

	var vf *ValidationFailed
	func() {
		defer func() { vf, _ = recover().(*ValidationFailed) }()
		v.ValidateAndPanic(req)
	}()

	require.NotNil(t, vf)
	assert.Equal(t, outcome.Failures, vf.Failures)
	assert.Contains(t, vf.Error(), outcome.Reason())
}

func TestOutcome_JSON(t *testing.T) {
	outcome := New().Validate(NewCreateUserRequest("invalid_email#123"))

	data, err := json.Marshal(outcome)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "Invalid",
		"isValid": false,
		"failures": [{
			"field": "Email",
			"rule": "email",
			"message": "must be a valid email address",
			"attemptedValue": "invalid_email#123"
		}]
	}`, string(data))
}

func TestValidationFailed_ErrorWithoutFailures(t *testing.T) {
	err := &ValidationFailed{Field: "Email", Reason: "is required"}
	assert.Equal(t, "Validation failed: Email: is required", err.Error())
}

func TestMessageFor(t *testing.T) {
	assert.Equal(t, "is required", MessageFor("required", ""))
	assert.Equal(t, "must be a valid email address", MessageFor("email", ""))
	assert.Equal(t, "must be at least 3 characters", MessageFor("min", "3"))
	assert.Equal(t, "must be at most 9 characters", MessageFor("max", "9"))
	assert.Equal(t, "failed on the 'uuid' rule", MessageFor("uuid", ""))
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{name: "valid", outcome: Outcome{Kind: KindValid, IsValid: true}, want: "Valid"},
		{
			name: "one failure",
			outcome: Outcome{Kind: KindInvalid, Failures: []Failure{
				{Field: "Email", Message: "must be a valid email address"},
			}},
			want: "Invalid(Email: must be a valid email address)",
		},
		{
			name: "two failures",
			outcome: Outcome{Kind: KindInvalid, Failures: []Failure{
				{Field: "Email", Message: "is required"},
				{Field: "Name", Message: "must be at most 10 characters"},
			}},
			want: "Invalid(Email: is required; Name: must be at most 10 characters)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.String())
		})
	}
}
