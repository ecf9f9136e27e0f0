package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredError_Error(t *testing.T) {
	// Test error without cause
	err := New(ErrorTypePlacement, "pin", "cpu set rejected")
	expected := "[placement] pin: cpu set rejected"
	assert.Equal(t, expected, err.Error())

	// Test error with cause
	cause := errors.New("invalid argument")
	err = Wrap(cause, ErrorTypePlacement, "pin", "sched_setaffinity failed")
	assert.Contains(t, err.Error(), "[placement] pin: sched_setaffinity failed")
	assert.Contains(t, err.Error(), "invalid argument")
	assert.Equal(t, cause, err.Unwrap())
}

func TestStructuredError_WithContext(t *testing.T) {
	err := New(ErrorTypePlacement, "pin", "cpu set rejected")
	err = err.WithContext("tid", 3).WithContext("node", 1)

	assert.Equal(t, 3, err.Context["tid"])
	assert.Equal(t, 1, err.Context["node"])
}

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, ErrorTypePlacement, NewPlacementError("op", "msg").Type)
	assert.Equal(t, ErrorTypeInvariant, NewInvariantError("op", "msg").Type)
	assert.Equal(t, ErrorTypeConfiguration, NewConfigurationError("op", "msg").Type)
}

func TestErrorWrapping(t *testing.T) {
	originalErr := errors.New("original error")

	wrapped := WrapPlacementError(originalErr, "alloc", "mbind failed")
	assert.Equal(t, ErrorTypePlacement, wrapped.Type)
	assert.Equal(t, "alloc", wrapped.Operation)
	assert.Equal(t, "mbind failed", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Unwrap())

	wrapped = WrapConfigurationError(originalErr, "load", "bad env")
	assert.Equal(t, ErrorTypeConfiguration, wrapped.Type)

	// Test that Wrap returns nil for nil error
	assert.Nil(t, Wrap(nil, ErrorTypePlacement, "op", "msg"))
}

func TestErrorsIsMatchesType(t *testing.T) {
	var err error = WrapPlacementError(errors.New("EPERM"), "pin", "denied")

	assert.True(t, errors.Is(err, &StructuredError{Type: ErrorTypePlacement}))
	assert.True(t, errors.Is(err, &StructuredError{Type: ErrorTypePlacement, Operation: "pin"}))
	assert.False(t, errors.Is(err, &StructuredError{Type: ErrorTypeInvariant}))
	assert.False(t, errors.Is(err, &StructuredError{Type: ErrorTypePlacement, Operation: "alloc"}))
}

func TestInvariantPanics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		se, ok := r.(*StructuredError)
		require.True(t, ok)
		assert.Equal(t, ErrorTypeInvariant, se.Type)
		assert.Equal(t, "[invariant] exchange: impossible status 3", se.Error())
	}()
	Invariant("exchange", "impossible status %d", 3)
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "placement", string(ErrorTypePlacement))
	assert.Equal(t, "invariant", string(ErrorTypeInvariant))
	assert.Equal(t, "configuration", string(ErrorTypeConfiguration))
}

func TestStackTraceCapture(t *testing.T) {
	err := New(ErrorTypePlacement, "test", "message")
	// Should have captured some stack frames
	assert.Greater(t, len(err.Stack), 0)
}
