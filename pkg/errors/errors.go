package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	// 2FA errors
	ErrCode2FAInvalid ErrorCode = "TWO_FA_INVALID"

	// Validation errors
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails adds multiple details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetDetails extracts the details from an error
// Returns nil if the error is not a structured Error
func GetDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes.
// Wrong credentials and wrong codes are user-correctable and answered with a
// retry redirect, so they map to 200 rather than 401.
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity

	case ErrCodeUnauthorized:
		return http.StatusUnauthorized

	case ErrCodeForbidden:
		return http.StatusForbidden

	case ErrCodeNotFound:
		return http.StatusNotFound

	case ErrCodeInvalidCredentials, ErrCode2FAInvalid:
		return http.StatusOK

	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Forbidden creates a "forbidden" error
func Forbidden(message string) *Error {
	return New(ErrCodeForbidden, message)
}

// InvalidCredentials creates an "invalid credentials" error
func InvalidCredentials(message string) *Error {
	return New(ErrCodeInvalidCredentials, message)
}

// InvalidCode creates a "2FA code invalid" error
func InvalidCode(message string) *Error {
	return New(ErrCode2FAInvalid, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// ValidationFailed creates a "validation failed" error
func ValidationFailed(details map[string]interface{}) *Error {
	return New(ErrCodeValidationFailed, "validation failed").WithDetails(details)
}
