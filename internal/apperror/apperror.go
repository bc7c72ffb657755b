package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an Error and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindTooManyRequests
)

const (
	msgValidation      = "Validation failed"
	msgUnauthorized    = "Unauthorized"
	msgForbidden       = "Forbidden"
	msgNotFound        = "Resource not found"
	msgTooManyRequests = "Too many requests"
	msgInternal        = "Internal Server Error"
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindTooManyRequests:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Error is an application error with a user-facing message.
// Fields holds per-field validation messages keyed by JSON field name.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code of the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

func newError(kind Kind, message, fallback string, cause error) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Validation(message string, fields map[string]string) *Error {
	e := newError(KindValidation, message, msgValidation, nil)
	e.Fields = fields
	return e
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, message, msgUnauthorized, nil)
}

func UnauthorizedWrap(message string, cause error) *Error {
	return newError(KindUnauthorized, message, msgUnauthorized, cause)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, message, msgForbidden, nil)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, message, msgNotFound, nil)
}

func TooManyRequests(message string) *Error {
	return newError(KindTooManyRequests, message, msgTooManyRequests, nil)
}

// Internal hides cause from the client; it is still reachable through errors.Unwrap.
func Internal(cause error) *Error {
	return newError(KindInternal, "", msgInternal, cause)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf reports the status code the error handler will write for err.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
