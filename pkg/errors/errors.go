package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed  ErrorCode = "RPE1001"
	ErrCodeConnectionTimeout ErrorCode = "RPE1002"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "RPE2001"
	ErrCodeConfigInvalid  ErrorCode = "RPE2002"

	// Generation errors (3xxx)
	ErrCodeGenerationFailed ErrorCode = "RPE3001"
	ErrCodeIntegrityFailed  ErrorCode = "RPE3002"

	// SQL execution errors (4xxx)
	ErrCodeSQLExecution   ErrorCode = "RPE4001"
	ErrCodeSQLTransaction ErrorCode = "RPE4002"
	ErrCodeSQLQuery       ErrorCode = "RPE4003"

	// File system errors (5xxx)
	ErrCodeFileNotFound  ErrorCode = "RPE5001"
	ErrCodeFileOperation ErrorCode = "RPE5002"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "RPE6001"
	ErrCodeInvalidInput     ErrorCode = "RPE6002"

	// Pipeline errors (7xxx)
	ErrCodeStepFailed         ErrorCode = "RPE7001"
	ErrCodeMaxRetriesExceeded ErrorCode = "RPE7002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "RPE9001"
	ErrCodeTimeout  ErrorCode = "RPE9002"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL"
	SeverityError    ErrorSeverity = "ERROR"
	SeverityWarning  ErrorSeverity = "WARNING"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check that the database is reachable",
			"Verify host, port and credentials in the config",
		).AsRecoverable()
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(fmt.Sprintf("Check the '%s' configuration value", field))
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	return Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
