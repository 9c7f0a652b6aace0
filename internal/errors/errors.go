package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for skillscope.
// It carries enough context (stage, path) to diagnose a failure without re-running.
type Error struct {
	// Code is the unique error code (e.g., "ERR_202_CORPUS_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Corpus, Scan, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Stage names the pipeline stage that produced the error (corpus, scan, score, pack, gaps).
	Stage string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

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

// Is matches by code so errors.Is works against sentinel-style *Error values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// WithStage records the pipeline stage the error originated from.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// New creates a new Error with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// CorpusError creates a fatal corpus error for the given corpus path.
func CorpusError(code, path, message string, cause error) *Error {
	return New(code, message, cause).WithStage("corpus").WithDetail("path", path)
}

// ScanError creates a fatal scan error for the given repository root.
func ScanError(code, root, message string, cause error) *Error {
	return New(code, message, cause).WithStage("scan").WithDetail("path", root)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an Error anywhere in the chain.
// Returns empty string if none is found.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category from an Error anywhere in the chain.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// Exit codes returned by the CLI.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitInvalid = 2
)

// ExitCode maps an error to the process exit code.
// Validation and config errors are the caller's fault (2); everything else is fatal (1).
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetCategory(err) {
	case CategoryValidation, CategoryConfig:
		return ExitInvalid
	default:
		return ExitFatal
	}
}
