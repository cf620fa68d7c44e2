// Package apperr defines the error categories surfaced by the signal service.
//
// Every error that crosses a package boundary toward the HTTP layer is either an
// *Error carrying a Kind, or an unexpected error that is reported as internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable error category. Its string form is what API clients see.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindPersistence Kind = "persistence_error"
	KindUpstream    Kind = "correlation_failed"
	KindInternal    Kind = "internal_error"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrPersistence = &Error{Kind: KindPersistence}
	ErrUpstream    = &Error{Kind: KindUpstream}
)

// Error is a categorized error. Op names the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. A target with an
// empty Message (a sentinel) matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Op == "" {
		return e.Kind == t.Kind
	}
	return e == t
}

// Validation returns a validation error with a human-readable reason.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// InvalidAction reports a verification action outside accept/reject/followup.
func InvalidAction(op, action string) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf("invalid action %q: must be one of accept, reject, followup", action)}
}

func NotFound(op, what, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func Conflict(op, format string, args ...any) error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindPersistence, Op: op, Message: "store operation failed", Err: err}
}

// Upstream wraps a correlation failure that was recorded on the job. The
// cause stays in Err; clients only see the fixed message.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindUpstream, Op: op, Message: "correlation failed", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show API clients. Wrapped causes and
// internal failures are shown only when debug is set.
func PublicMessage(err error, debug bool) string {
	var e *Error
	if !errors.As(err, &e) {
		if debug {
			return err.Error()
		}
		return "internal server error"
	}
	if debug && e.Err != nil {
		return e.Error()
	}
	if e.Kind == KindPersistence {
		return "storage temporarily unavailable"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}
