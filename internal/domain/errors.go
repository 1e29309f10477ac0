package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for entities that do not exist. The HTTP layer
// maps it to 404, distinguishable from validation failure.
var ErrNotFound = errors.New("not found")

// ErrNoTransition marks a status update that would not change the status.
// No-op transitions must not produce duplicate events.
var ErrNoTransition = errors.New("status unchanged")

// ValidationError reports malformed input. It is surfaced to the caller as a
// client error and never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for a field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
