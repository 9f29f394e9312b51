package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/sagarc03/itemgate"
)

// ErrorKind classifies a failure at the HTTP boundary.
type ErrorKind int

const (
	KindDependency ErrorKind = iota
	KindValidation
	KindAuthentication
	KindForbidden
	KindNotFound
	KindConflict
	KindTooLarge
	KindTimeout
	KindCanceled
)

// StatusClientClosedRequest is the non-standard status recorded when the
// client disconnects before the response is ready.
const StatusClientClosedRequest = 499

// Code returns the machine readable code sent in the "code" field.
func (k ErrorKind) Code() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAuthentication:
		return "authentication_error"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooLarge:
		return "too_large"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "internal_error"
	}
}

// Status returns the HTTP status code for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message used when a handler has no more
// specific one.
func (k ErrorKind) Message() string {
	switch k {
	case KindValidation:
		return "Invalid request"
	case KindAuthentication:
		return "Authentication failed"
	case KindForbidden:
		return "Invalid or expired token"
	case KindNotFound:
		return "Item not found"
	case KindConflict:
		return "Email already registered"
	case KindTooLarge:
		return "File too large"
	case KindTimeout:
		return "Request timed out"
	case KindCanceled:
		return "Request canceled"
	default:
		return "Internal server error"
	}
}

// Classify maps an error returned by the service layer to an ErrorKind.
// Anything unrecognised is a dependency failure.
func Classify(err error) ErrorKind {
	var maxBytesErr *http.MaxBytesError

	switch {
	case err == nil:
		return KindDependency
	case errors.As(err, &maxBytesErr):
		return KindTooLarge
	case errors.Is(err, itemgate.ErrInvalidInput):
		return KindValidation
	case errors.Is(err, itemgate.ErrAuthenticationFailed), errors.Is(err, itemgate.ErrUnauthorized):
		return KindAuthentication
	case errors.Is(err, itemgate.ErrInvalidToken):
		return KindForbidden
	case errors.Is(err, itemgate.ErrNotFound):
		return KindNotFound
	case errors.Is(err, itemgate.ErrEmailTaken):
		return KindConflict
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindDependency
	}
}
