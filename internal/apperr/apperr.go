// Package apperr defines the error kinds shared by services, handlers and the realtime
// pipeline. Each kind carries a machine code and maps to one HTTP status.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindCanceled     Kind = "CANCELED"
	KindUpstream     Kind = "UPSTREAM_ERROR"
	KindTimeout      Kind = "TIMEOUT"
)

// StatusClientClosedRequest is the non-standard status used when the caller went away.
const StatusClientClosedRequest = 499

// Error is an application error with a kind, a machine code and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error. An empty code defaults to the kind.
func New(kind Kind, code, message string, err error) *Error {
	if code == "" {
		code = string(kind)
	}
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(message string) *Error   { return New(KindValidation, "", message, nil) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, "", message, nil) }
func Forbidden(message string) *Error    { return New(KindForbidden, "", message, nil) }
func NotFound(message string) *Error     { return New(KindNotFound, "", message, nil) }

func Conflict(message string, err error) *Error { return New(KindConflict, "", message, err) }
func Upstream(message string, err error) *Error { return New(KindUpstream, "", message, err) }
func Timeout(message string, err error) *Error  { return New(KindTimeout, "", message, err) }
func Canceled(message string, err error) *Error { return New(KindCanceled, "", message, err) }

// FromContext converts a context error into Canceled or Timeout. It returns nil for nil.
func FromContext(err error, message string) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout(message, err)
	case errors.Is(err, context.Canceled):
		return Canceled(message, err)
	}
	return nil
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err. Errors outside the taxonomy are upstream failures.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	if ce := FromContext(err, ""); ce != nil {
		return ce.Kind
	}
	return KindUpstream
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Status maps a kind to its HTTP status.
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindCanceled:
		return StatusClientClosedRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Describe returns the code and a client-safe message for err. Causes of upstream
// failures are not exposed.
func Describe(err error) (code, message string) {
	if e, ok := As(err); ok {
		return e.Code, e.Message
	}
	if ce := FromContext(err, "request was canceled"); ce != nil {
		return ce.Code, ce.Message
	}
	return string(KindUpstream), "internal error"
}
