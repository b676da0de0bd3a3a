package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so handlers can pick a status code.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindForbidden
	KindValidation
	KindConflict
	KindNotFound
	KindRateLimited
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a domain failure with a message that is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ErrUnauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func ErrForbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func ErrValidation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func ErrConflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func ErrNotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func ErrRateLimited(format string, args ...any) *Error {
	return newError(KindRateLimited, format, args...)
}

// ErrUnavailable wraps a failing downstream dependency.
func ErrUnavailable(err error, format string, args ...any) *Error {
	e := newError(KindUnavailable, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of err, KindInternal for anything unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
