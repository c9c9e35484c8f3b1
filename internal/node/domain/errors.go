package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for cross-backend error classification.
// Backends should wrap these so callers can handle error categories
// uniformly without importing backend-specific SDKs.
//
//	return fmt.Errorf("failed to start instance: %w", domain.ErrUnauthorized)
var (
	// ErrNotFound indicates the requested node does not exist.
	ErrNotFound = errors.New("node not found")

	// ErrUnauthorized indicates the request was rejected due to
	// invalid, expired, or missing credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the backend throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict indicates the node is in a state that does not allow
	// the requested command, such as starting a terminated instance.
	ErrConflict = errors.New("conflict")
)

// ErrorKind classifies a failed action.
type ErrorKind string

const (
	KindPrecondition      ErrorKind = "PreconditionError"
	KindConnection        ErrorKind = "ConnectionError"
	KindUnsupportedAction ErrorKind = "UnsupportedActionError"
	KindTimeout           ErrorKind = "TimeoutError"
)

// ActionError is the error carried by a failed ActionResult. It matches
// the kind sentinels below through errors.Is:
//
//	if errors.Is(err, domain.ErrTimeout) { ... }
type ActionError struct {
	Kind   ErrorKind
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ActionError) Error() string {
	return e.Reason
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Is matches any ActionError of the same kind.
func (e *ActionError) Is(target error) bool {
	t, ok := target.(*ActionError)
	return ok && t.Kind == e.Kind
}

var (
	ErrPrecondition      = &ActionError{Kind: KindPrecondition, Reason: "precondition failed"}
	ErrConnection        = &ActionError{Kind: KindConnection, Reason: "connection failed"}
	ErrUnsupportedAction = &ActionError{Kind: KindUnsupportedAction, Reason: "unsupported action"}
	ErrTimeout           = &ActionError{Kind: KindTimeout, Reason: "timed out"}
)

// PreconditionError reports an action that is illegal for the node's
// current state.
func PreconditionError(reason string) *ActionError {
	return &ActionError{Kind: KindPrecondition, Reason: reason}
}

// ConnectionError reports a backend session, authorization, or network
// failure.
func ConnectionError(err error, format string, args ...any) *ActionError {
	reason := fmt.Sprintf(format, args...)
	if err != nil {
		reason += ": " + err.Error()
	}
	return &ActionError{Kind: KindConnection, Reason: reason, Err: err}
}

// UnsupportedActionError reports an action the backend does not map.
func UnsupportedActionError(backend string, action Action) *ActionError {
	return &ActionError{
		Kind:   KindUnsupportedAction,
		Reason: fmt.Sprintf("action %s is not supported by backend %s", action, backend),
	}
}

// TimeoutError reports a node that did not reach its intended state in time.
func TimeoutError(reason string) *ActionError {
	return &ActionError{Kind: KindTimeout, Reason: reason}
}
