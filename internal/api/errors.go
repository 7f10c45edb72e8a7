package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes. Clients branch on these, so they are
// part of the API contract.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodePathSafety    = "PATH_SAFETY_ERROR"
	CodeTimeout       = "TIMEOUT_ERROR"
	CodeResourceLimit = "RESOURCE_LIMIT_ERROR"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeProcessing    = "PROCESSING_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
)

// Error is the typed error carried through the conversion pipeline. Status
// maps the error category to an HTTP status code; Details carries optional
// structured context such as per-field validation messages.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// AsError extracts an *Error from err's chain, if present.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Validation builds a 400 error enumerating every invalid field.
func Validation(msg string, details any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg, Details: details}
}

// PathSafety builds a 403 error for a path escaping the permitted boundary.
func PathSafety(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodePathSafety, Message: msg}
}

// Timeout builds a 408 error for a conversion exceeding its wall-clock budget.
func Timeout(msg string) *Error {
	return &Error{Status: http.StatusRequestTimeout, Code: CodeTimeout, Message: msg}
}

// ResourceLimit builds a 413 error. The message must name the limit breached.
func ResourceLimit(msg string) *Error {
	return &Error{Status: http.StatusRequestEntityTooLarge, Code: CodeResourceLimit, Message: msg}
}

// QuotaExceeded builds a 429 error for an exhausted daily allowance.
func QuotaExceeded(msg string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: CodeQuotaExceeded, Message: msg}
}

// Processing wraps a codec failure (corrupt or unsupported image content).
func Processing(msg string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeProcessing, Message: msg, cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: msg, cause: cause}
}
