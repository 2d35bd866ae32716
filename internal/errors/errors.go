package errors

import (
	"fmt"
)

// Error is the structured error type for devrag.
// It provides rich context for error handling, logging, and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_403_FINGERPRINT_MISMATCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Encoder, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with *Error sentinels.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
// Config errors are fatal at build time; the build aborts before any write.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error. These are recovered locally during
// a walk: the item is skipped with a warning.
func IOError(message string, cause error) *Error {
	return New(ErrCodeFileUnreadable, message, cause)
}

// EncoderUnavailableError creates an error for a semantic encoder that
// failed to load, connect, or respond in time.
func EncoderUnavailableError(message string, cause error) *Error {
	return New(ErrCodeEncoderUnavailable, message, cause)
}

// FingerprintMismatchError reports that a persisted index was built with a
// different embedder identity than the one currently configured. The
// suggestion always tells the caller to rebuild; similarity scores across
// embedding spaces are meaningless.
func FingerprintMismatchError(storedID string, storedDim int, currentID string, currentDim int) *Error {
	return New(ErrCodeFingerprintMismatch,
		fmt.Sprintf("index was built with embedder %q (dim %d) but current embedder is %q (dim %d)",
			storedID, storedDim, currentID, currentDim), nil).
		WithDetail("stored_embedder", storedID).
		WithDetail("current_embedder", currentID).
		WithSuggestion("rebuild the index with the currently configured embedder (devrag index)")
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*Error); ok {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*Error); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an Error.
// Returns empty string if not an Error.
func GetCode(err error) string {
	if de, ok := err.(*Error); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from an Error.
// Returns empty string if not an Error.
func GetCategory(err error) Category {
	if de, ok := err.(*Error); ok {
		return de.Category
	}
	return ""
}
