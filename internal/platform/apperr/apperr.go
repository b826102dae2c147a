// Package apperr defines the error kinds shared by the progression engine.
// Callers classify failures with errors.Is against the sentinels below.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown subtopic, user attempt or other keyed entity.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput reports a request the engine refuses before touching state.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage reports an unavailable store or a conflicting write.
	ErrStorage = errors.New("storage failure")
)

// NotFound returns an ErrNotFound with a formatted detail message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Invalid returns an ErrInvalidInput with a formatted detail message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Storage wraps err as an ErrStorage for the named operation.
// Errors that already carry one of the engine kinds are returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
