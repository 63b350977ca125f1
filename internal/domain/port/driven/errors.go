// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials indicates a login attempt the server rejected.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthError is returned when the lending API rejects a call for a missing,
// expired or revoked credential (a 401-equivalent). The gateway reports the
// failure to the session layer before returning it; the original call is
// never retried with a different credential.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authorization rejected"
	}
	return "authorization rejected: " + e.Message
}

// APIError is returned when a call reaches the server but is rejected for
// business reasons. Message carries the server's explanation verbatim so the
// UI can render it.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lending api: %s (status %d)", e.Message, e.StatusCode)
}

// TransportError is returned when a call never completed. These are the
// generic retryable failures; the workflow step that triggered the call is
// left unchanged.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
