// Package catalogerr provides the typed error taxonomy used across
// videocatalogd's components and translated to HTTP status codes at the
// server boundary.
package catalogerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for status-code mapping and client handling.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is a typed, wrappable application error.
type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches structured detail data (e.g. a field-error map) and
// returns the receiver for chaining.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// NotFound, Validation, Conflict, Internal are constructors for the common
// kinds, mirroring the sentinel-error style of the package this is grounded
// on but generalized to a single typed Kind instead of per-feature sentinels.

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Validation(message string) *Error { return New(KindValidation, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Internal(cause error) *Error      { return Wrap(KindInternal, "internal error", cause) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }

// KindOf returns the Kind of err if it is (or wraps) a *Error, otherwise
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
