package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindExternal
	KindInternal
)

// Error is the service-level error type. Services return it instead of
// fiber errors so the taxonomy stays transport-independent.
type Error struct {
	Kind    Kind
	Code    string // machine-readable, e.g. SETTINGS_MISSING
	Message string // safe to show to the client
	Err     error  // wrapped cause, never serialized
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Authentication(code, message string) *Error {
	return &Error{Kind: KindAuthentication, Code: code, Message: message}
}

func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Code: "FORBIDDEN", Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func External(code, message string, err error) *Error {
	return &Error{Kind: KindExternal, Code: code, Message: message, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "internal server error", Err: err}
}

// StatusCode maps the taxonomy to HTTP statuses per the API conventions.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindExternal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// Respond writes err as a JSON error response. Unknown errors are sanitized
// to a generic 500 so internal detail never reaches the client.
func Respond(c *fiber.Ctx, err error) error {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}
	return c.Status(appErr.StatusCode()).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
