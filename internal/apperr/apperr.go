// Package apperr defines the error taxonomy shared by services, middleware
// and the HTTP error handler. Every failure that reaches a client carries
// one Kind; the handler layer maps the Kind to a status code.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure. The string value is exposed to clients as the
// errorCode field of the error payload.
type Kind string

const (
	KindAuthMissing        Kind = "AUTH_MISSING"
	KindAuthInvalid        Kind = "AUTH_INVALID"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindValidation         Kind = "VALIDATION"
	KindDuplicateName      Kind = "DUPLICATE_NAME"
	KindDuplicateUsername  Kind = "DUPLICATE_USERNAME"
	KindInvalidRole        Kind = "INVALID_ROLE"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindProductNotFound    Kind = "PRODUCT_NOT_FOUND"
	KindNotPurchased       Kind = "NOT_PURCHASED"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindInternal           Kind = "INTERNAL"
)

// Error is a classified failure. Message is safe to show to clients; Err is
// the underlying cause and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an Error of the given kind that keeps err as its cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Internal wraps an unexpected failure. The client only ever sees a generic
// message for this kind.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf reports the Kind carried by err, or KindInternal when err is not
// an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindAuthMissing, KindAuthInvalid, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden, KindNotPurchased:
		return http.StatusForbidden
	case KindNotFound, KindProductNotFound:
		return http.StatusNotFound
	case KindValidation, KindDuplicateName, KindInvalidRole:
		return http.StatusBadRequest
	case KindDuplicateUsername:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
