// Package errors provides the structured error type shared by the interview
// client's packages.
//
// ContextualError records the component and operation that failed, plus an
// optional status code and details. It implements Unwrap so sentinel errors
// survive wrapping.
//
// Usage:
//
//	err := errors.New("records", "GetJob", someErr)
//	err = err.WithStatusCode(503).WithDetails(map[string]any{"job_id": 7})
package errors

import (
	stderrors "errors"
	"fmt"
)

// Components that produce ContextualErrors.
const (
	ComponentRecords   = "records"
	ComponentSession   = "session"
	ComponentStreaming = "streaming"
	ComponentDevice    = "device"
	ComponentConfig    = "config"
)

// ContextualError is a structured error describing where and why a failure occurred.
type ContextualError struct {
	// Component identifies the package that produced the error (e.g. "records", "session").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is an optional HTTP or WebSocket close code.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Wrap is New that passes nil through, for use on return paths.
func Wrap(component, operation string, cause error) error {
	if cause == nil {
		return nil
	}
	return New(component, operation, cause)
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode sets the status code and returns e for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns e for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// StatusCode returns the status code of the outermost ContextualError in
// err's chain that carries one, or 0.
func StatusCode(err error) int {
	for err != nil {
		var ce *ContextualError
		if !stderrors.As(err, &ce) {
			return 0
		}
		if ce.StatusCode != 0 {
			return ce.StatusCode
		}
		err = ce.Cause
	}
	return 0
}
