package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error codes.
const (
	CodeDocumentUnreadable    = "DOCUMENT_UNREADABLE"
	CodeRecognizerUnavailable = "RECOGNIZER_UNAVAILABLE"
	CodeNoTextExtracted       = "NO_TEXT_EXTRACTED"
	CodeExtractionFailed      = "EXTRACTION_FAILED"
	CodeRecoveryFailed        = "RECOVERY_FAILED"
	CodeSchemaViolation       = "SCHEMA_VIOLATION"
	CodeConfig                = "CONFIG_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")

	ErrDocumentUnreadable    = errors.New("document unreadable")
	ErrRecognizerUnavailable = errors.New("recognizer unavailable")
	ErrNoTextExtracted       = errors.New("no text extracted")
	ErrExtractionFailed      = errors.New("extraction failed")
	ErrUnsupportedFormat     = errors.New("unsupported document format")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HTTPStatus maps an error code onto a response status for the HTTP surface.
// Pipeline codes are degraded results, not request failures.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeConfig:
		return http.StatusServiceUnavailable
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func InvalidInputError(message string) error {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput)
}

func InvalidInputErrorf(format string, args ...interface{}) error {
	return InvalidInputError(fmt.Sprintf(format, args...))
}
