package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes carried across layers. The HTTP layer maps them to status
// codes, so handlers never inspect error text.
const (
	CodeLoadError       = "LOAD_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeDeletionError   = "DELETION_ERROR"
	CodeAlreadyRunning  = "ALREADY_RUNNING"
	CodeNotFound        = "NOT_FOUND"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeInternalError   = "INTERNAL_ERROR"
)

// AppError carries a stable code alongside the message. Wrapping another
// AppError preserves its code so the original classification survives any
// number of context layers.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New creates an AppError with the given code.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap adds context to err. The innermost AppError code is kept; a plain
// error is classified as internal. Wrapping nil returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: GetCode(err), Message: message, Cause: err}
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError reports whether err carries an AppError anywhere in its chain.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode extracts the code from the nearest AppError in the chain.
// Plain errors classify as internal; nil or unrecognized errors report
// "UNKNOWN" only when no AppError is present and err is non-nil.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	if err != nil {
		return CodeInternalError
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

func LoadError(msg string) *AppError       { return New(CodeLoadError, msg) }
func ValidationError(msg string) *AppError { return New(CodeValidationError, msg) }
func DeletionError(msg string) *AppError   { return New(CodeDeletionError, msg) }
func AlreadyRunning(msg string) *AppError  { return New(CodeAlreadyRunning, msg) }
func ConfigInvalid(msg string) *AppError   { return New(CodeConfigInvalid, msg) }
func InternalError(msg string) *AppError   { return New(CodeInternalError, msg) }

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}
