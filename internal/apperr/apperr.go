// Package apperr defines the typed errors returned by services and their
// mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindInsufficient
	KindUnauthorized
	KindForbidden
	KindConflict
	KindLocked
)

var statusByKind = map[Kind]int{
	KindInternal:     http.StatusInternalServerError,
	KindNotFound:     http.StatusNotFound,
	KindInvalid:      http.StatusBadRequest,
	KindInsufficient: http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindConflict:     http.StatusConflict,
	KindLocked:       http.StatusLocked,
}

// Error carries a client-safe message together with its Kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func NotFound(msg string) *Error     { return newError(KindNotFound, msg) }
func Invalid(msg string) *Error      { return newError(KindInvalid, msg) }
func Insufficient(msg string) *Error { return newError(KindInsufficient, msg) }
func Unauthorized(msg string) *Error { return newError(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return newError(KindForbidden, msg) }
func Conflict(msg string) *Error     { return newError(KindConflict, msg) }
func Locked(msg string) *Error       { return newError(KindLocked, msg) }

// KindOf reports the Kind of err, KindInternal for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	return statusByKind[KindOf(err)]
}

// Message returns the client-facing text for err. Untyped errors never leak
// their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
