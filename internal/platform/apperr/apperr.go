// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for the admin service.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Taxonomy: Schema and token-lifecycle failures each carry their own code so callers
    can tell them apart with [HasCode] instead of matching strings.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses. Infrastructure failures are the exception: they travel
unchanged and surface as 500s.
*/
package apperr

import (
	"errors"
	"net/http"
)

// # Error Codes

const (
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeValidation           = "VALIDATION_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
	CodeTimeout              = "TIMEOUT"
	CodeUnknownType          = "UNKNOWN_TYPE"
	CodeDuplicateClass       = "DUPLICATE_CLASS"
	CodeIncorrectType        = "INCORRECT_TYPE"
	CodeVerificationDisabled = "VERIFICATION_DISABLED"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeNoAdapterConfigured  = "NO_ADAPTER_CONFIGURED"
)

// AppError is the canonical error type for the admin API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., driver messages).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "TOKEN_EXPIRED").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Class") // Returns "Class not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// # Schema Errors

// UnknownType creates a 400 [AppError] for a field type the storage encoding
// does not recognise.
func UnknownType(msg string) *AppError {
	return &AppError{
		Code:       CodeUnknownType,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// DuplicateClass creates a 409 [AppError] for a class that already exists.
func DuplicateClass(className string) *AppError {
	return &AppError{
		Code:       CodeDuplicateClass,
		Message:    "Class " + className + " already exists.",
		HTTPStatus: http.StatusConflict,
	}
}

// IncorrectType creates a 400 [AppError] for a field type the backend cannot accept.
func IncorrectType(msg string) *AppError {
	return &AppError{
		Code:       CodeIncorrectType,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// # Token Lifecycle Errors

// VerificationDisabled creates a 403 [AppError] returned when email
// verification is switched off in configuration.
func VerificationDisabled() *AppError {
	return &AppError{
		Code:       CodeVerificationDisabled,
		Message:    "Email verification is disabled",
		HTTPStatus: http.StatusForbidden,
	}
}

// InvalidToken creates a 400 [AppError] for an unknown or already consumed token.
func InvalidToken(msg string) *AppError {
	return &AppError{
		Code:       CodeInvalidToken,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// TokenExpired creates a 400 [AppError] for a token past its validity window.
func TokenExpired(msg string) *AppError {
	return &AppError{
		Code:       CodeTokenExpired,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NoAdapterConfigured creates a 500 [AppError] for flows that need a mail
// transport when none was wired.
func NoAdapterConfigured(msg string) *AppError {
	return &AppError{
		Code:       CodeNoAdapterConfigured,
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Timeout creates a 504 [AppError] for a storage call that ran out of time.
func Timeout(cause error) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    "The operation timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err's chain holds an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
