package restapi

import (
	"errors"
	"fmt"
)

// Kind classifies an API failure.
type Kind string

// Kind values.
const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindServerError  Kind = "server_error"
	KindNetwork      Kind = "network"
	KindUnknown      Kind = "unknown"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrServerError  = errors.New("server error")
	ErrNetwork      = errors.New("network error")
	ErrUnknown      = errors.New("unknown api error")
)

var kindSentinels = map[Kind]error{
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindNotFound:     ErrNotFound,
	KindValidation:   ErrValidation,
	KindServerError:  ErrServerError,
	KindNetwork:      ErrNetwork,
	KindUnknown:      ErrUnknown,
}

// User-facing messages per kind.
const (
	msgUnauthorized = "Session expired. Please login again."
	msgAuthFailed   = "Authentication failed."
	msgForbidden    = "Access denied. You don't have permission for this action."
	msgNotFound     = "Resource not found."
	msgValidation   = "Validation failed"
	msgServerError  = "Server error. Please try again later."
	msgNetwork      = "Network error. Please check your connection."
	msgDefault      = "An error occurred"
	msgUnexpected   = "An unexpected error occurred"
)

// Error is a classified API failure. Only this package constructs it.
type Error struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Message string
	Details map[string]string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	head := fmt.Sprintf("%s %s", e.Method, e.Path)
	if e.Status > 0 {
		head = fmt.Sprintf("%s: status %d", head, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", head, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", head, e.Message)
}

// Unwrap returns the transport or decode error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// UserMessage returns the human-readable message already sent to the notifier.
func (e *Error) UserMessage() string {
	return e.Message
}

// Notified reports that the client already surfaced this failure.
func (e *Error) Notified() bool {
	return true
}

// KindOf returns the classification of err, or "" when err is not an API error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
