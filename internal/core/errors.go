package core

import "errors"

// Error codes sent to clients.
const (
	// Handshake failures. These double as the close reason.
	ErrCodeUnauthorized      = "Unauthorized"
	ErrCodeInvalidCredential = "InvalidCredential"

	ErrCodeBadRequest         = "bad_request"
	ErrCodePersistenceFailure = "persistence_failure"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeUnknownType        = "invalid_message"
)

// ErrSessionClosed is returned when a command reaches a closed session.
var ErrSessionClosed = errors.New("session closed")

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

// NewError builds a CoreError for transports that reject input before it
// reaches a session.
func NewError(code, msg string) *CoreError {
	return coreError(code, msg)
}
