package resource

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a record does not exist in the backing store.
// Detail reads absorb it into a nil result; mutations surface it.
var ErrNotFound = errors.New("record not found")

// ValidationError is raised before any store call when a payload is missing
// a required field or carries an invalid value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
