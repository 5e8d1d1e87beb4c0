package supabase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a backend failure at the point where it happens
type Kind string

const (
	KindTimeout      Kind = "timeout"
	KindExpired      Kind = "expired"
	KindPolicyDenied Kind = "policy_denied"
	KindUnauthorized Kind = "unauthorized"
	KindUnexpected   Kind = "unexpected"
)

var (
	ErrTimeout           = errors.New("backend request timed out")
	ErrExpired           = errors.New("session expired")
	ErrPolicyDenied      = errors.New("row access denied by policy")
	ErrUnauthorized      = errors.New("not authorized")
	ErrNoSession         = errors.New("no active session")
	ErrServiceKeyMissing = errors.New("service role key is not configured")
)

// Error is a failed backend call
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("supabase: %s (status %d): %s", e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("supabase: %s (status %d)", e.Kind, e.Status)
	case e.Message != "":
		return fmt.Sprintf("supabase: %s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("supabase: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("supabase: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrExpired:
		return e.Kind == KindExpired
	case ErrPolicyDenied:
		return e.Kind == KindPolicyDenied
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	}
	return false
}

// KindOf returns the kind attached to err, or KindUnexpected for foreign errors
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnexpected
}

// kindForStatus maps an HTTP status of the backend to an error kind
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotAcceptable:
		return KindPolicyDenied
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	}
	return KindUnexpected
}

// transportError wraps a failed round trip
func transportError(err error) *Error {
	kind := KindUnexpected
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Err: err}
}
