package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist or is owned by a
// different user. Ownership mismatches are deliberately indistinguishable
// from missing records so existence is never revealed across users.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input rejected before any store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
