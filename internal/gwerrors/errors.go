// Package gwerrors provides standardized error types shared across the
// gateway's components.
//
// ContextualError is the base error type that captures component,
// operation, and optional status code and details. It implements the
// error and Unwrap interfaces for seamless integration with Go's errors
// package.
package gwerrors

import "fmt"

// Kind classifies an error for the purposes of §7 error-handling policy.
type Kind string

// Error kinds from §7.
const (
	KindProtocol   Kind = "protocol"
	KindAuth       Kind = "authentication"
	KindTool       Kind = "tool"
	KindRepository Kind = "repository"
	KindModel      Kind = "model_stream"
	KindResource   Kind = "resource"
	KindFatal      Kind = "fatal"
)

// ContextualError is a structured error type that provides consistent
// context about where and why an error occurred.
type ContextualError struct {
	// Kind classifies the error per §7.
	Kind Kind

	// Component identifies the module that produced the error (e.g. "session", "modelstream").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is an optional application-level status code.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given kind, component, operation, and cause.
func New(kind Kind, component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s:%s] %s", e.Kind, e.Component, e.Operation)

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

// WithStatusCode sets the status code and returns the same error for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns the same error for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}
