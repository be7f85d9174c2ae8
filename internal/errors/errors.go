package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all fatal failure modes.
// Anything not listed here is handled fail-soft and surfaces in the Errors
// table instead.
type ErrorCode string

const (
	// TemplateNotFound indicates the input template file does not exist
	TemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	// TemplateParseFailed indicates the input is not valid JSON
	TemplateParseFailed ErrorCode = "TEMPLATE_PARSE_FAILED"
	// TemplateNotObject indicates the JSON root is not an object
	TemplateNotObject ErrorCode = "TEMPLATE_NOT_OBJECT"
	// NoResources indicates the template contains zero resources
	NoResources ErrorCode = "NO_RESOURCES"
	// ExportFailed indicates an output sink could not be written
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AnalysisError represents a fatal factorylens error with a stable code.
type AnalysisError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// New creates a new AnalysisError.
func New(code ErrorCode, message string, cause error) *AnalysisError {
	return &AnalysisError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.cause
}
