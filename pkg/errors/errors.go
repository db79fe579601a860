// Package errors provides unified error handling for the transcription
// service. It implements structured error types with error codes, HTTP
// status mapping, and RFC 7807-style client responses.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithHTTPStatus overrides the recommended HTTP status and returns the receiver.
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Job-processing error constructors ---

// Configuration creates a new AppError for missing required backend settings.
func Configuration(message string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: message,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// UnsupportedFormat creates a new AppError for a file extension outside the allow-lists.
func UnsupportedFormat(ext string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("Unsupported file format: %s", ext),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"extension": ext},
	}
}

// ExternalTool creates a new AppError for a failed or missing transcoding tool.
func ExternalTool(tool, reason string) *AppError {
	return &AppError{
		Code: ErrCodeExternalTool, Message: fmt.Sprintf("%s: %s", tool, reason),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"tool": tool},
	}
}

// Backend creates a new AppError for a failed remote transcription call.
func Backend(reason string) *AppError {
	return &AppError{
		Code: ErrCodeBackend, Message: reason,
		HTTPStatus: http.StatusBadGateway, Retryable: false,
	}
}

// Artifact creates a new AppError for an empty or unreadable result location.
func Artifact(reason string) *AppError {
	return &AppError{
		Code: ErrCodeArtifact, Message: reason,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// --- API-boundary error constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Conflict creates a new AppError for a conflict with the current state of the resource.
func Conflict(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: reason,
		HTTPStatus: http.StatusConflict, Retryable: false,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an unexpected internal failure.
func Internal(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: reason,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}
