package cases

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/throwbench/internal/validation"
)

func TestAbortive_ReportsFailure(t *testing.T) {
	v := validation.New()

	var (
		msg string
		err error
	)
	require.NotPanics(t, func() {
		msg, err = Abortive(v, InvalidEmail)
	})
	require.NoError(t, err)
	assert.Equal(t, "Validation failed: Email: must be a valid email address", msg)
	assert.NotEqual(t, PassedMarker, msg)
}

func TestAbortive_ValidInputPasses(t *testing.T) {
	msg, err := Abortive(validation.New(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, PassedMarker, msg)
}

func TestRunAbortive_UnexpectedPanic(t *testing.T) {
	msg, err := runAbortive(func() { panic("disk on fire") })

	assert.Empty(t, msg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedAbort))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestNonAbortive(t *testing.T) {
	v := validation.New()

	outcome := NonAbortive(v, InvalidEmail)

	assert.Equal(t, validation.KindInvalid, outcome.Kind)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "Email", outcome.Failures[0].Field)

	for i := 0; i < 20; i++ {
		assert.Equal(t, outcome, NonAbortive(v, InvalidEmail))
	}
}

func TestCasesReportSameFailure(t *testing.T) {
	v := validation.New()

	msg, err := Abortive(v, InvalidEmail)
	require.NoError(t, err)
	outcome := NonAbortive(v, InvalidEmail)

	assert.Contains(t, msg, outcome.Failures[0].Message)
	assert.Contains(t, msg, outcome.Reason())
}

func TestDefault(t *testing.T) {
	r := Default(validation.New())

	assert.Equal(t, []string{NameWithException, NameWithoutException}, r.Names())

	with, ok := r.Lookup(NameWithException)
	require.True(t, ok)
	out, err := with.Run()
	require.NoError(t, err)
	assert.Contains(t, out, "must be a valid email address")

	without, ok := r.Lookup(NameWithoutException)
	require.True(t, ok)
	out, err = without.Run()
	require.NoError(t, err)
	assert.Equal(t, "Invalid(Email: must be a valid email address)", out)
}

func TestNonAbortiveE(t *testing.T) {
	v := validation.New()

	out, err := NonAbortiveE(v, InvalidEmail)
	require.NoError(t, err)
	assert.Equal(t, NonAbortive(v, InvalidEmail).String(), out)

	out, err = NonAbortiveE(v, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Valid", out)
}

func TestRunNonAbortive_EngineError(t *testing.T) {
	broken := errors.New("evaluate rules: bad struct")

	var (
		out string
		err error
	)
	require.NotPanics(t, func() {
		out, err = runNonAbortive(func() (validation.Outcome, error) {
			return validation.Outcome{}, broken
		})
	})
	assert.Empty(t, out)
	assert.ErrorIs(t, err, broken)
}

func TestDefault_WithoutExceptionAddsLittleOverhead(t *testing.T) {
	v := validation.New()
	without, ok := Default(v).Lookup(NameWithoutException)
	require.True(t, ok)

	direct := testing.AllocsPerRun(100, func() {
		sinkOutcome = NonAbortive(v, InvalidEmail)
	})
	registered := testing.AllocsPerRun(100, func() {
		sinkMessage, _ = without.Run()
	})

	// Rendering the outcome costs at most the reason and the wrapper string.
	assert.LessOrEqual(t, registered-direct, 2.0)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	noop := func() (string, error) { return "", nil }

	require.NoError(t, r.Register("a", noop))
	assert.Error(t, r.Register("a", noop), "duplicate name")
	assert.Error(t, r.Register("", noop), "empty name")
	assert.Error(t, r.Register("b", nil), "nil func")

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry()
	noop := func() (string, error) { return "", nil }
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, r.Register(name, noop))
	}

	all, err := r.Select()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	picked, err := r.Select("third", "first")
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "first", picked[0].Name)
	assert.Equal(t, "third", picked[1].Name)

	_, err = r.Select("nope")
	assert.Error(t, err)
}
