package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Job-processing errors
const (
	// ErrCodeConfiguration indicates required backend settings are missing.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeUnsupportedFormat indicates a file extension outside the allow-lists.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeExternalTool indicates the transcoding tool is missing or failed.
	ErrCodeExternalTool ErrorCode = "EXTERNAL_TOOL_ERROR"
	// ErrCodeBackend indicates the remote transcription call failed.
	ErrCodeBackend ErrorCode = "BACKEND_ERROR"
	// ErrCodeArtifact indicates an expected result location was empty or unreadable.
	ErrCodeArtifact ErrorCode = "ARTIFACT_ERROR"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// None of the job-processing codes are retryable: the pipeline fails a job
// on the first error and never re-dispatches it.
var retryableCodes = map[ErrorCode]bool{}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
