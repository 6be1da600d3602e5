package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport error")

	// ErrProtocol matches every *ProtocolError.
	ErrProtocol = errors.New("protocol error")
)

// TransportError reports a network failure or a non-2xx response.
type TransportError struct {
	// Step is the session step that issued the request.
	Step Step

	// Method is the HTTP method.
	Method string

	// URL is the requested URL.
	URL string

	// StatusCode is the response status, or 0 when no response arrived.
	StatusCode int

	// Seq is the request sequence number.
	Seq int64

	// Err is the underlying network error, if any.
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request %d %s %s: %v", e.Step, e.Seq, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: request %d %s %s: unexpected status %d", e.Step, e.Seq, e.Method, e.URL, e.StatusCode)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ProtocolError reports a response that broke the postback protocol,
// typically a missing hidden token.
type ProtocolError struct {
	// Step is the session step that observed the problem.
	Step Step

	// Field is the missing or invalid form field.
	Field string

	// Reason describes the violation.
	Reason string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Step, e.Field, e.Reason)
}

// Is reports whether target is ErrProtocol.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
