// Package brokererr provides the structured error taxonomy the broker's HTTP
// surface uses to translate internal failures into status codes and
// machine-readable reason tokens.
package brokererr

import (
	"fmt"
	"net/http"
)

// Kind identifies one of the error categories the broker surfaces to clients.
type Kind string

const (
	// KindBadRequest marks malformed JSON, a missing required field, or a
	// malformed channel name.
	KindBadRequest Kind = "bad_request"
	// KindUnauthenticated marks a subscribe request the principal resolver
	// refused.
	KindUnauthenticated Kind = "unauthenticated"
	// KindUnauthorizedService marks a publish request whose service
	// token/declared-service/channel combination was rejected.
	KindUnauthorizedService Kind = "unauthorized_service"
	// KindNotFound marks a request to an unknown path.
	KindNotFound Kind = "not_found"
	// KindInternal marks an unexpected failure in the core.
	KindInternal Kind = "internal"
)

// httpStatus maps each Kind to the status code it must be surfaced as.
var httpStatus = map[Kind]int{
	KindBadRequest:          http.StatusBadRequest,
	KindUnauthenticated:     http.StatusUnauthorized,
	KindUnauthorizedService: http.StatusForbidden,
	KindNotFound:            http.StatusNotFound,
	KindInternal:            http.StatusInternalServerError,
}

// E is a structured error envelope carrying the kind, a reason token safe to
// return in a response body, and an optional cause retained for logging.
type E struct {
	Kind   Kind
	Reason string
	cause  error
}

// Option configures an error envelope at construction time.
type Option func(*E)

// WithCause attaches an underlying error retained for server-side logging.
// The cause is never included in the HTTP response body.
func WithCause(err error) Option {
	return func(e *E) { e.cause = err }
}

// New constructs an error envelope for the given kind. reason defaults to the
// kind's string value when empty.
func New(kind Kind, reason string, opts ...Option) *E {
	if reason == "" {
		reason = string(kind)
	}
	e := &E{Kind: kind, Reason: reason}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Error implements the error interface, including the cause when present so
// that log lines retain full context; HTTP responses must never use
// Error() (the broker's response body carries only the Kind token).
func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes the underlying cause for errors.Is/As compatibility.
func (e *E) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// HTTPStatus returns the status code the given kind must be surfaced as.
func HTTPStatus(kind Kind) int {
	if status, ok := httpStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// BadRequest is a convenience constructor for the common bad_request case.
func BadRequest(reason string) *E { return New(KindBadRequest, reason) }

// Unauthenticated is a convenience constructor for a failed principal
// resolution.
func Unauthenticated(reason string) *E { return New(KindUnauthenticated, reason) }

// UnauthorizedService is a convenience constructor for a rejected publish.
func UnauthorizedService(reason string) *E { return New(KindUnauthorizedService, reason) }

// NotFound is a convenience constructor for an unknown path.
func NotFound(reason string) *E { return New(KindNotFound, reason) }

// Internal is a convenience constructor wrapping an unexpected failure. The
// cause is retained for logging but never leaks into the response reason.
func Internal(cause error) *E {
	return New(KindInternal, "internal_error", WithCause(cause))
}
