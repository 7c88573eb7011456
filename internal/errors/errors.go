package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
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

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode wraps err under the given code
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the code of the outermost AppError in the chain, or "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Error codes
const (
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	CodeArchiveEmpty         = "ARCHIVE_EMPTY"
	CodeMalformedMetadata    = "MALFORMED_METADATA"
	CodeNoAttachments        = "NO_ATTACHMENTS"
	CodeUnrecognizedFilename = "UNRECOGNIZED_FILENAME"
	CodeUnreadableWorkbook   = "UNREADABLE_WORKBOOK"
	CodeLayoutMismatch       = "LAYOUT_MISMATCH"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeInternalError        = "INTERNAL_ERROR"
)

func UpstreamUnavailable(message string, cause error) *AppError {
	return &AppError{Code: CodeUpstreamUnavailable, Message: message, Cause: cause}
}

func ArchiveEmpty(message string) *AppError {
	return New(CodeArchiveEmpty, message)
}

func MalformedMetadata(message string) *AppError {
	return New(CodeMalformedMetadata, message)
}

func NoAttachments(message string) *AppError {
	return New(CodeNoAttachments, message)
}

func UnrecognizedFilename(filename string) *AppError {
	return New(CodeUnrecognizedFilename, fmt.Sprintf("filename %q has no numeric ordering token", filename))
}

// UnreadableWorkbook records the source URL alongside the parse failure
func UnreadableWorkbook(sourceURL string, cause error) *AppError {
	return &AppError{
		Code:    CodeUnreadableWorkbook,
		Message: fmt.Sprintf("workbook at %s could not be read", sourceURL),
		Cause:   cause,
	}
}

func LayoutMismatch(message string) *AppError {
	return New(CodeLayoutMismatch, message)
}

func InvalidRequest(message string) *AppError {
	return New(CodeInvalidRequest, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
