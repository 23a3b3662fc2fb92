package services

import (
	"errors"
)

// Error kinds surfaced to callers. Compare with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUploadFailed    = errors.New("upload failed")

	// ErrInvalidToken is returned by TokenService; AuthService turns it into
	// ErrUnauthenticated.
	ErrInvalidToken = errors.New("invalid token")
)

// Error carries a kind, a human readable message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}
