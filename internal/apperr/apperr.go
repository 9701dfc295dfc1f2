// Package apperr holds the error kinds the progression engine surfaces.
// Callers wrap them with context and test with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: a referenced hero, task or quest does not exist. Terminal.
	ErrNotFound = errors.New("not found")
	// ErrValidation: the request is malformed. Terminal.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: the request clashes with current state.
	ErrConflict = errors.New("conflict")
	// ErrStoreUnavailable: transient data store failure. Reads may be retried.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
