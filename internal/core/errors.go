package core

import "errors"

// Error codes sent to sockets.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnknownEvent     = "unknown_event"
	ErrCodeUnavailable      = "unavailable"
	ErrCodeNotAuthenticated = "io:not_authenticated"
)

var (
	// ErrNotFound is returned by Query.Info when the directory has no such user.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidTransition is returned when a session is driven out of order.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
