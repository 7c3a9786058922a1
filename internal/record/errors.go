package record

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id references no record.
	ErrNotFound = errors.New("not found")
	// ErrSecretMismatch is returned when a destructive action carries the wrong key.
	ErrSecretMismatch = errors.New("secret key does not match")
	// ErrNoSecret is returned when a destructive action is attempted before a key is set.
	ErrNoSecret = errors.New("no secret key configured")
)

// ValidationError reports malformed input. Nothing is mutated when it is returned.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
