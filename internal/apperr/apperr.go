// Package apperr carries the error kinds that cross the HTTP boundary.
//
// Domain packages keep their own sentinel errors and classify them with Wrap
// (or New) where the failure is first understood. Anything left unclassified
// is reported to clients as KindInternal.
package apperr

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Kind is a stable, machine-readable error category exposed to clients.
type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindDuplicateEmail       Kind = "duplicate_email"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindUnauthenticated      Kind = "unauthenticated"
	KindUnknownCreator       Kind = "unknown_creator"
	KindNotFound             Kind = "not_found"
	KindInternal             Kind = "internal_error"
)

// Error is a classified error. Message is safe to show to clients; Err is the
// underlying cause and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	// Status overrides the default status of Kind when non-zero.
	Status int
	// Fields holds per-field validation messages, keyed by JSON name.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the response status for the error.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return StatusOf(e.Kind)
}

// WithStatus returns a copy of e answering with status instead of the kind default.
func (e *Error) WithStatus(status int) *Error {
	c := *e
	c.Status = status
	return &c
}

// New creates a classified error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err, which must be non-nil.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation classifies the result of an ozzo-validation check. Field errors
// become a KindValidation error carrying message and the per-field details;
// rule failures that are not field errors are internal. A nil err yields nil.
func Validation(err error, message string) error {
	if err == nil {
		return nil
	}
	var fe validation.Errors
	if !errors.As(err, &fe) {
		return Internal(err)
	}
	fields := make(map[string]string, len(fe))
	for name, ferr := range fe {
		if ferr != nil {
			fields[name] = ferr.Error()
		}
	}
	return &Error{Kind: KindValidation, Message: message, Fields: fields, Err: err}
}

// Internal is the generic classification for unexpected failures.
func Internal(err error) *Error {
	return Wrap(err, KindInternal, "internal server error")
}

// From returns the classified error in err's chain, or an internal error
// wrapping err when none is found.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// KindOf reports the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	return From(err).Kind
}

// StatusOf maps a kind to its default HTTP status.
func StatusOf(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicateEmail:
		return http.StatusConflict
	case KindAuthenticationFailed, KindUnauthenticated, KindUnknownCreator:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
