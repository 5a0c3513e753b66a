package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected by the scheduler.
//
// Runtime errors include:
//   - Invalid component declaration at registration
//   - Duplicate component registration
//   - Fetch dispatch failure (unknown dataset, unhashable signature)
//
// RuntimeError carries structured fields for diagnostics; none of these
// errors are fatal to the session.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ComponentID identifies the affected component, when known.
	ComponentID string

	// Identifier is the selection identifier involved, when relevant.
	Identifier string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidConfig indicates a component declaration failed
	// normalization or validation.
	ErrCodeInvalidConfig RuntimeErrorCode = "INVALID_CONFIG"

	// ErrCodeDuplicateComponent indicates a component ID was registered
	// twice.
	ErrCodeDuplicateComponent RuntimeErrorCode = "DUPLICATE_COMPONENT"

	// ErrCodeFetchFailed indicates a fetch could not be dispatched.
	ErrCodeFetchFailed RuntimeErrorCode = "FETCH_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.ComponentID != "" && e.Identifier != "" {
		return fmt.Sprintf("%s: %s (component=%s, identifier=%s)", e.Code, e.Message, e.ComponentID, e.Identifier)
	}
	if e.ComponentID != "" {
		return fmt.Sprintf("%s: %s (component=%s)", e.Code, e.Message, e.ComponentID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is an invalid-config RuntimeError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidConfig
	}
	return false
}

// IsDuplicateComponentError reports whether err is a duplicate
// registration RuntimeError.
func IsDuplicateComponentError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDuplicateComponent
	}
	return false
}

func newConfigError(componentID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeInvalidConfig,
		Message:     "component declaration invalid",
		ComponentID: componentID,
		Err:         err,
	}
}

func newDuplicateError(componentID string) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeDuplicateComponent,
		Message:     "component already registered",
		ComponentID: componentID,
	}
}
