// Package domainerrors provides coded errors for the service boundary.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors from this package; transport maps codes to HTTP
// statuses. Codes are stable strings so they can travel in responses and logs.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
)

// Error is a coded domain error. It optionally wraps a cause and carries
// structured attributes for logging.
type Error struct {
	Code    Code
	Message string

	cause error
	attrs []any
}

// New constructs a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a coded error around an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Add attaches slog-style key-value attributes to the error for later logging.
// Returns the error so it can be chained at the return site.
func (e *Error) Add(args ...any) *Error {
	e.attrs = append(e.attrs, args...)
	return e
}

// Load extracts attributes attached via Add anywhere in the error chain.
// Returns nil when the chain carries no domain error.
func Load(err error) []any {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.attrs
	}
	return nil
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries a domain error with the
// given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability in handlers.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps a code to the HTTP status the transport layer should
// return. Unknown codes map to 500 so new codes fail safe.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
