// Package apierror provides the error taxonomy shared by services and handlers.
// Services return *Error values; handlers translate them into HTTP responses
// without inspecting messages
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// Denial reasons carried by Forbidden errors
const (
	ReasonRoleNotAllowed    = "role_not_allowed"
	ReasonNoLinkedWorker    = "no_linked_worker"
	ReasonWorkerOutOfScope  = "worker_out_of_scope"
	ReasonReassignForbidden = "reassign_forbidden"
	ReasonEditWindowMissing = "edit_window_missing"
	ReasonEditWindowExpired = "edit_window_expired"
	ReasonDeleteRestricted  = "delete_restricted"
)

// Error is the canonical application error
type Error struct {
	Kind    Kind
	Message string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error kind
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(msg string) *Error   { return &Error{Kind: KindBadRequest, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// Forbidden builds a denial with a machine-readable reason
func Forbidden(reason, msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg, Reason: reason}
}

// Internal wraps an unexpected failure
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// From extracts an *Error from err, wrapping unknown errors as Internal
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("Error interno del servidor", err)
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// Body is the JSON envelope written for every error response
type Body struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToBody renders the error for clients. The underlying error detail is only
// exposed for 500 responses, for diagnostics
func (e *Error) ToBody() Body {
	b := Body{Message: e.Message, Reason: e.Reason}
	if e.Kind == KindInternal && e.Err != nil {
		b.Error = e.Err.Error()
	}
	return b
}
