// Package faceid implements the face-authentication core: the registry
// client for enrolled identities, the authentication engine state machine,
// and the session gate that authorizes door actions.
package faceid

import (
	"errors"
	"fmt"
)

// ErrVerifyInFlight is returned when a capture is submitted while another
// verification is still pending. The racing capture is dropped, never queued.
var ErrVerifyInFlight = errors.New("verification already in flight")

// ErrNotAuthorized is returned by the gate when no valid session exists.
var ErrNotAuthorized = errors.New("not authorized: face authentication required")

// ValidationError reports bad local input, detected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PreconditionError reports caller misuse, e.g. starting an authentication
// attempt with no enrolled identities.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}

// NetworkError reports a transport-level failure or timeout talking to the
// backend. It is never auto-retried; re-attempting is a user action.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a 4xx/5xx response from the backend. Detail carries the
// backend's diagnostic text verbatim when available, e.g. "no face detected".
type ServerError struct {
	Code   int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server error: status %d", e.Code)
	}
	return fmt.Sprintf("server error: status %d: %s", e.Code, e.Detail)
}

// ContractError reports a backend response that violates the API contract,
// such as a successful verification with no identity attached. The engine
// always fails closed on it.
type ContractError struct {
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("backend contract violation: %s", e.Detail)
}
