package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError and Warning.
const (
	CodeInputDecode       = "INPUT_DECODE_ERROR"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeTemplateLoad      = "TEMPLATE_LOAD_WARNING"
	CodeExtractionPartial = "EXTRACTION_PARTIAL_FAILURE"
	CodeConfig            = "CONFIG_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
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

// Common application errors
var (
	ErrInputDecode       = errors.New("input cannot be decoded")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTemplateLoad      = errors.New("template skipped")
	ErrExtractionPartial = errors.New("extraction step failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// InputDecodeError marks a document that cannot be read as its declared format.
func InputDecodeError(what string, cause error) error {
	if cause == nil {
		cause = ErrInputDecode
	} else {
		cause = fmt.Errorf("%w: %w", ErrInputDecode, cause)
	}
	return NewAppError(CodeInputDecode, what, cause)
}

// UnsupportedFormatError names the rejected extension.
func UnsupportedFormatError(ext string) error {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("unsupported extension %q", ext), ErrUnsupportedFormat)
}

// ErrorCode returns the AppError code found in err's chain, or CodeInternal.
func ErrorCode(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// StatusCode maps the error taxonomy onto gRPC codes.
func StatusCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrInputDecode), errors.Is(err, ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, ErrTemplateLoad):
		return codes.FailedPrecondition
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}
