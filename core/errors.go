package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies driver errors into a flat taxonomy mirroring the
// standard database-client exception hierarchy.
type ErrorKind int

const (
	KindWarning ErrorKind = iota
	KindInterface
	KindDatabase
	KindData
	KindOperational
	KindIntegrity
	KindInternal
	KindProgramming
	KindNotSupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindWarning:
		return "warning"
	case KindInterface:
		return "interface error"
	case KindDatabase:
		return "database error"
	case KindData:
		return "data error"
	case KindOperational:
		return "operational error"
	case KindIntegrity:
		return "integrity error"
	case KindInternal:
		return "internal error"
	case KindProgramming:
		return "programming error"
	case KindNotSupported:
		return "not supported"
	default:
		return "unknown error"
	}
}

// Error is the single error type surfaced by the driver.
// Callers classify it via Kind and errors.As.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

func NewDatabaseError(cause error, format string, args ...any) *Error {
	return newError(KindDatabase, cause, format, args...)
}

func NewDataError(cause error, format string, args ...any) *Error {
	return newError(KindData, cause, format, args...)
}

func NewOperationalError(cause error, format string, args ...any) *Error {
	return newError(KindOperational, cause, format, args...)
}

func NewIntegrityError(cause error, format string, args ...any) *Error {
	return newError(KindIntegrity, cause, format, args...)
}

func NewInternalError(cause error, format string, args ...any) *Error {
	return newError(KindInternal, cause, format, args...)
}

func NewProgrammingError(format string, args ...any) *Error {
	return newError(KindProgramming, nil, format, args...)
}

func NewNotSupportedError(format string, args ...any) *Error {
	return newError(KindNotSupported, nil, format, args...)
}

// ErrorIsKind reports whether err is a driver error of the given kind.
func ErrorIsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
