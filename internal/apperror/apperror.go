// Package apperror holds the error kinds shared by the task, profile and
// archive packages, and their mapping onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("task already completed by someone else")
	ErrStoreUnavailable = errors.New("operation failed, try again")
	ErrEmailTaken       = errors.New("email already registered")
)

// ValidationError rejects an operation before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Unavailable wraps a store failure so callers can match ErrStoreUnavailable
// while the underlying cause stays reachable through errors.Unwrap.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{op: op, err: err}
}

type unavailableError struct {
	op  string
	err error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Status maps an error kind onto an HTTP status code and a message that is
// safe to show to the user.
func Status(err error) (int, string) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "already completed"
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict, ErrEmailTaken.Error()
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
