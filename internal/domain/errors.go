package domain

import (
	"errors"
	"fmt"
)

// Domain error types for the indexing and compilation pipeline.
type (
	// ValidationError indicates malformed input: a bad timestamp, an
	// inverted span, or an analysis result with no children. Always fatal
	// to the operation that produced it; never silently repaired.
	ValidationError struct {
		Message string
	}

	// TypeMismatchError indicates an unknown node kind reaching the
	// compiler. Fatal; signals a broken invariant upstream.
	TypeMismatchError struct {
		Kind string
	}
)

// Error implementations
func (e *ValidationError) Error() string { return e.Message }
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("unknown node kind: %q", e.Kind)
}

// Sentinel errors - use with errors.Is()
var (
	ErrValidation   = errors.New("validation failed")
	ErrTypeMismatch = errors.New("unknown node kind")
	ErrNotFound     = errors.New("not found")
)

// Is allows errors.Is() to match against ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Is allows errors.Is() to match against ErrTypeMismatch
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
