package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed   ErrorCode = "ETL1001"
	ErrCodeUnsupportedDialect ErrorCode = "ETL1002"
	ErrCodeCredentialMissing  ErrorCode = "ETL1003"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "ETL2001"
	ErrCodeConfigInvalid  ErrorCode = "ETL2002"

	// Storage errors (4xxx)
	ErrCodeSchemaCreate      ErrorCode = "ETL4001"
	ErrCodeUpsertFailed      ErrorCode = "ETL4002"
	ErrCodeSQLTransaction    ErrorCode = "ETL4003"
	ErrCodeQueryFailed       ErrorCode = "ETL4004"
	ErrCodeViewCreate        ErrorCode = "ETL4005"
	ErrCodeWarehouseNotFound ErrorCode = "ETL4010"

	// Source and file system errors (5xxx)
	ErrCodeFileNotFound    ErrorCode = "ETL5001"
	ErrCodeFileOperation   ErrorCode = "ETL5002"
	ErrCodeSourceMalformed ErrorCode = "ETL5003"

	// Validation errors (6xxx)
	ErrCodeSchemaViolation ErrorCode = "ETL6001"
	ErrCodeInvalidInput    ErrorCode = "ETL6002"

	// Security errors (7xxx)
	ErrCodeEncryptionFailed ErrorCode = "ETL7001"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "ETL9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Run aborted, data may need attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
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

// Is reports whether target is an AppError with the same code
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
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError. A nil err yields nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	var inner *AppError
	if errors.As(err, &inner) {
		for k, v := range inner.Context {
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

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a warehouse connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check the warehouse URL",
			"Verify the database server is reachable",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'fintechbi setup' to reconfigure",
		)
}

// SourceError reports a raw source file that cannot be interpreted
func SourceError(path string, message string, cause error) *AppError {
	err := New(ErrCodeSourceMalformed, message).WithContext("path", path)
	err.Cause = cause
	return err
}

// SchemaError reports a record that failed schema validation. It always aborts the run.
func SchemaError(source string, row int, cause error) *AppError {
	err := New(ErrCodeSchemaViolation, fmt.Sprintf("Schema violation in %s row %d", source, row)).
		WithContext("source", source).
		WithContext("row", row).
		WithSeverity(SeverityCritical).
		WithSuggestions("The source file is untrustworthy; fix or regenerate it before loading")
	err.Cause = cause
	return err
}

// StorageError creates a warehouse storage error for table operations
func StorageError(code ErrorCode, table string, cause error) *AppError {
	return Wrap(cause, code, fmt.Sprintf("Storage operation failed on %s", table)).
		WithContext("table", table).
		WithSeverity(SeverityCritical).
		WithSuggestions("Previously committed data was left intact; rerun after fixing the cause")
}

// ValidationError creates an input validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether any AppError in err's chain carries code
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &AppError{Code: code})
}
