package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for the answer pipeline.
type ErrorCode string

const (
	// ErrCodeConfig indicates a missing or invalid collaborator configuration.
	ErrCodeConfig ErrorCode = "CONFIG"
	// ErrCodeRateLimited indicates the upstream activity service throttled us.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeReauthRequired indicates the stored credential cannot be refreshed.
	ErrCodeReauthRequired ErrorCode = "REAUTH_REQUIRED"
	// ErrCodeUpstream indicates a hard upstream failure (non-429 4xx/5xx).
	ErrCodeUpstream ErrorCode = "UPSTREAM"
	// ErrCodeContextTooLarge indicates the assembled prompt exceeded the model window.
	ErrCodeContextTooLarge ErrorCode = "CONTEXT_TOO_LARGE"
	// ErrCodeTimeout indicates an outbound call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnauthenticated indicates the request carries no valid session.
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	// ErrCodeInternal indicates an unclassified failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// QueryError represents a structured error raised on the question-answering path.
type QueryError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// Config creates a configuration error.
func Config(msg string) *QueryError {
	return &QueryError{Code: ErrCodeConfig, Message: msg}
}

// RateLimited creates a rate limit error.
func RateLimited(msg string) *QueryError {
	return &QueryError{Code: ErrCodeRateLimited, Message: msg}
}

// ReauthRequired creates a re-authentication error.
func ReauthRequired(msg string, cause error) *QueryError {
	return &QueryError{Code: ErrCodeReauthRequired, Message: msg, Cause: cause}
}

// Upstream creates an upstream failure error.
func Upstream(msg string, cause error) *QueryError {
	return &QueryError{Code: ErrCodeUpstream, Message: msg, Cause: cause}
}

// ContextTooLarge creates a context-too-large error.
func ContextTooLarge(cause error) *QueryError {
	return &QueryError{Code: ErrCodeContextTooLarge, Message: "prompt exceeds model context window", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *QueryError {
	return &QueryError{Code: ErrCodeTimeout, Message: msg}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(msg string) *QueryError {
	return &QueryError{Code: ErrCodeUnauthenticated, Message: msg}
}

// Wrap wraps an existing error with a pipeline code.
func Wrap(cause error, code ErrorCode, msg string) *QueryError {
	return &QueryError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if qErr, ok := err.(*QueryError); ok {
		return qErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a QueryError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if qErr, ok := err.(*QueryError); ok {
		return qErr.Code
	}
	return defaultCode
}
