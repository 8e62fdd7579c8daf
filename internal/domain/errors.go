package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a survey, review, image or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals an integrity violation such as a duplicate username or a second review.
	ErrConflict = errors.New("conflict")
	// ErrDecode is returned when uploaded bytes are not a recognised image.
	ErrDecode = errors.New("unrecognised image data")
	// ErrUnauthorized is returned when a workflow requires an authenticated session.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes a rejected input. Field is empty for form-level problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// AsValidation extracts the ValidationError wrapped by err.
func AsValidation(err error) (*ValidationError, bool) {
	var target *ValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
