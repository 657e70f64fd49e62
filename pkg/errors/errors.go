// Package errors defines custom error types and error handling utilities for the CLE License Enforcement Service.
// This package provides structured error types that map to licensing error codes and HTTP status codes.
package errors

import (
	"fmt"
	"net/http"

	"github.com/turtacn/cle/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// CLEError represents a structured error with additional metadata
type CLEError interface {
	error

	// Code returns the machine-readable licensing error code
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) CLEError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) CLEError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

// baseError is the internal implementation of CLEError
type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface
func (e *baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

// Code returns the machine-readable licensing error code
func (e *baseError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code
func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

// Description returns the error description
func (e *baseError) Description() string {
	return e.description
}

// Unwrap returns the underlying cause error
func (e *baseError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause error to the error chain
func (e *baseError) WithCause(cause error) CLEError {
	e.cause = cause
	return e
}

// WithMetadata adds additional context metadata
func (e *baseError) WithMetadata(key string, value interface{}) CLEError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all metadata
func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new CLEError with the specified parameters
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) CLEError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error
func ErrInvalidRequest(message string) CLEError {
	return NewError(
		constants.ErrCodeInvalidRequest,
		http.StatusBadRequest,
		"The request is missing a required parameter, includes an invalid parameter value, or is otherwise malformed.",
		message,
	)
}

// ErrInvalidLicense creates an invalid_license error.
// All verification failures collapse into this one constructor so callers
// cannot distinguish a bad signature from an unknown issuer.
func ErrInvalidLicense() CLEError {
	return NewError(
		constants.ErrCodeInvalidLicense,
		http.StatusBadRequest,
		"The supplied license token could not be verified.",
		"license verification failed",
	)
}

// ErrLicenseNotFound creates a license_not_found error
func ErrLicenseNotFound(id string) CLEError {
	return NewError(
		constants.ErrCodeLicenseNotFound,
		http.StatusNotFound,
		"No license matched the given identifier.",
		fmt.Sprintf("license not found: %s", id),
	).WithMetadata("license_id", id)
}

// ErrClientLimitExceeded creates a client_limit_exceeded error
func ErrClientLimitExceeded(clientID string, limit int64) CLEError {
	return NewError(
		constants.ErrCodeClientLimitExceeded,
		http.StatusForbidden,
		"The licensed client limit (including tolerance) has been reached.",
		fmt.Sprintf("client %q refused: effective limit %d reached", clientID, limit),
	).WithMetadata("client_id", clientID).
		WithMetadata("limit", limit)
}

// ErrIssuerLimitExceeded creates an issuer_limit_exceeded error
func ErrIssuerLimitExceeded(issuer string, limit int64) CLEError {
	return NewError(
		constants.ErrCodeIssuerLimitExceeded,
		http.StatusForbidden,
		"The licensed issuer limit has been reached and the issuer is not whitelisted.",
		fmt.Sprintf("issuer %q refused: limit %d reached", issuer, limit),
	).WithMetadata("issuer", issuer).
		WithMetadata("limit", limit)
}

// ErrIssuerNotWhitelisted creates an issuer_not_whitelisted error
func ErrIssuerNotWhitelisted(issuer string) CLEError {
	return NewError(
		constants.ErrCodeIssuerNotWhitelisted,
		http.StatusForbidden,
		"The issuer is not on the license's issuer whitelist.",
		fmt.Sprintf("issuer %q refused: not on the license whitelist", issuer),
	).WithMetadata("issuer", issuer)
}

// ErrServerError creates a server_error error
func ErrServerError(message string) CLEError {
	return NewError(
		constants.ErrCodeServerError,
		http.StatusInternalServerError,
		"The license service encountered an unexpected condition that prevented it from fulfilling the request.",
		message,
	)
}

// ErrTemporarilyUnavailable creates a temporarily_unavailable error
func ErrTemporarilyUnavailable(message string) CLEError {
	return NewError(
		constants.ErrCodeTemporarilyUnavailable,
		http.StatusServiceUnavailable,
		"The license service is currently unable to handle the request due to temporary overloading or maintenance.",
		message,
	)
}

// ================================================================================
// Infrastructure Error Constructors
// ================================================================================

// ErrStorageOperation creates a storage_error for a failed persistence operation
func ErrStorageOperation(op string) CLEError {
	return NewError(
		constants.ErrCodeStorageError,
		http.StatusInternalServerError,
		"A persistence-layer operation failed.",
		fmt.Sprintf("storage operation failed: %s", op),
	).WithMetadata("operation", op)
}

// ErrCacheOperation creates a cache_error for a failed registry operation
func ErrCacheOperation(op string) CLEError {
	return NewError(
		constants.ErrCodeCacheError,
		http.StatusInternalServerError,
		"A Redis registry operation failed.",
		fmt.Sprintf("registry operation failed: %s", op),
	).WithMetadata("operation", op)
}

// ErrVaultOperation creates a vault_error for failed trust-material access
func ErrVaultOperation(op string) CLEError {
	return NewError(
		constants.ErrCodeVaultError,
		http.StatusInternalServerError,
		"Trust material could not be fetched from Vault.",
		fmt.Sprintf("vault operation failed: %s", op),
	).WithMetadata("operation", op)
}

// ErrDatabaseConnectionFailed creates a database connection failed error
func ErrDatabaseConnectionFailed(reason string) CLEError {
	return ErrServerError(fmt.Sprintf("failed to connect to database: %s", reason)).
		WithMetadata("reason", reason)
}

// ErrCacheConnectionFailed creates a cache connection failed error
func ErrCacheConnectionFailed(reason string) CLEError {
	return ErrServerError(fmt.Sprintf("failed to connect to Redis: %s", reason)).
		WithMetadata("reason", reason)
}

// ErrKafkaConnectionFailed creates a Kafka connection failed error
func ErrKafkaConnectionFailed(reason string) CLEError {
	return ErrServerError(fmt.Sprintf("failed to connect to Kafka: %s", reason)).
		WithMetadata("reason", reason)
}

// ErrMissingRequiredParameter creates a missing required parameter error
func ErrMissingRequiredParameter(paramName string) CLEError {
	return ErrInvalidRequest(fmt.Sprintf("missing required parameter: %s", paramName)).
		WithMetadata("parameter", paramName)
}

// ================================================================================
// Error Validation Utilities
// ================================================================================

// IsCLEError checks if an error is a CLEError
func IsCLEError(err error) bool {
	_, ok := err.(CLEError)
	return ok
}

// AsCLEError attempts to cast an error to CLEError
func AsCLEError(err error) (CLEError, bool) {
	cleErr, ok := err.(CLEError)
	return cleErr, ok
}

// WrapError wraps a generic error into a CLEError
func WrapError(err error, code constants.ErrorCode, message string) CLEError {
	var httpStatus int

	switch code {
	case constants.ErrCodeInvalidRequest, constants.ErrCodeInvalidLicense:
		httpStatus = http.StatusBadRequest
	case constants.ErrCodeLicenseNotFound:
		httpStatus = http.StatusNotFound
	case constants.ErrCodeClientLimitExceeded, constants.ErrCodeIssuerLimitExceeded,
		constants.ErrCodeIssuerNotWhitelisted:
		httpStatus = http.StatusForbidden
	case constants.ErrCodeTemporarilyUnavailable:
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	return NewError(code, httpStatus, err.Error(), message).WithCause(err)
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description"`
	ErrorURI         string                 `json:"error_uri,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts a CLEError to an ErrorResponse
func ToErrorResponse(err CLEError) *ErrorResponse {
	return &ErrorResponse{
		Error:            string(err.Code()),
		ErrorDescription: err.Description(),
		Metadata:         err.Metadata(),
	}
}

// ToGenericErrorResponse converts any error to an ErrorResponse
func ToGenericErrorResponse(err error) *ErrorResponse {
	if cleErr, ok := AsCLEError(err); ok {
		return ToErrorResponse(cleErr)
	}

	// Fallback to generic server error
	return &ErrorResponse{
		Error:            string(constants.ErrCodeServerError),
		ErrorDescription: "An unexpected error occurred",
	}
}

// ================================================================================
// Error Classification Utilities
// ================================================================================

// IsTransientError checks if an error is transient and can be retried
func IsTransientError(err error) bool {
	if cleErr, ok := AsCLEError(err); ok {
		return cleErr.Code() == constants.ErrCodeTemporarilyUnavailable
	}
	return false
}

// IsAdmissionRefusal checks if an error is a limit-enforcement refusal rather
// than an operational failure. Refusals are policy decisions and never logged
// at error level.
func IsAdmissionRefusal(err error) bool {
	if cleErr, ok := AsCLEError(err); ok {
		code := cleErr.Code()
		return code == constants.ErrCodeClientLimitExceeded ||
			code == constants.ErrCodeIssuerLimitExceeded ||
			code == constants.ErrCodeIssuerNotWhitelisted
	}
	return false
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	if cleErr, ok := AsCLEError(err); ok {
		return cleErr.Code() == constants.ErrCodeLicenseNotFound
	}
	return false
}

// ShouldLogError determines if an error should be logged based on severity
func ShouldLogError(err error) bool {
	if cleErr, ok := AsCLEError(err); ok {
		// Don't log client errors (4xx); admission refusals are audited instead
		return cleErr.HTTPStatus() >= 500
	}
	return true
}
