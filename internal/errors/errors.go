package errors

import (
	"fmt"
	"runtime"
)

// Error types for the failure categories the stacks can produce.
type ErrorType string

const (
	// ErrorTypePlacement covers thread pinning and node-local allocation failures.
	ErrorTypePlacement ErrorType = "placement"
	// ErrorTypeInvariant marks a broken protocol invariant, e.g. an exchange
	// cell observed in a status no transition can produce.
	ErrorTypeInvariant     ErrorType = "invariant"
	ErrorTypeConfiguration ErrorType = "configuration"
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Stack     []uintptr
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new structured error
func New(errType ErrorType, operation, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}

	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     err,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is reports whether target is a StructuredError of the same type, so
// callers can match categories with errors.Is(err, &StructuredError{Type: ...}).
func (e *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Operation == "" || t.Operation == e.Operation)
}

// captureStack captures the current stack trace
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, captureStack and the constructor
	return pcs[:n]
}

// NewPlacementError creates a placement error
func NewPlacementError(operation, message string) *StructuredError {
	return New(ErrorTypePlacement, operation, message)
}

// NewInvariantError creates an invariant violation error
func NewInvariantError(operation, message string) *StructuredError {
	return New(ErrorTypeInvariant, operation, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(operation, message string) *StructuredError {
	return New(ErrorTypeConfiguration, operation, message)
}

// WrapPlacementError wraps an error as a placement error
func WrapPlacementError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypePlacement, operation, message)
}

// WrapConfigurationError wraps an error as a configuration error
func WrapConfigurationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeConfiguration, operation, message)
}

// Invariant panics with an invariant error. Broken protocol invariants are
// unrecoverable: returning a value after one could hand out a wrong key.
func Invariant(operation, format string, args ...interface{}) {
	panic(NewInvariantError(operation, fmt.Sprintf(format, args...)))
}
