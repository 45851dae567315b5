package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Camera environment
	ErrCodeInsecureContext        ErrorCode = "INSECURE_CONTEXT"
	ErrCodePermissionDenied       ErrorCode = "PERMISSION_DENIED"
	ErrCodeNoCameraFound          ErrorCode = "NO_CAMERA_FOUND"
	ErrCodeUnsupportedEnvironment ErrorCode = "UNSUPPORTED_ENVIRONMENT"
	ErrCodeUnknown                ErrorCode = "UNKNOWN"

	// Scanning
	ErrCodeDecodeInvalid ErrorCode = "DECODE_INVALID"
	ErrCodeNetwork       ErrorCode = "NETWORK_ERROR"

	// Control API
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeNoActiveStream ErrorCode = "NO_ACTIVE_STREAM"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func InsecureContext(host string) *AppError {
	return New(ErrCodeInsecureContext, fmt.Sprintf("Camera access is not allowed from %q without a secure connection", host))
}

func PermissionDenied(cause error) *AppError {
	return Wrap(ErrCodePermissionDenied, "Camera access was denied", cause)
}

func NoCameraFound(cause error) *AppError {
	return Wrap(ErrCodeNoCameraFound, "No camera was found", cause)
}

func UnsupportedEnvironment(cause error) *AppError {
	return Wrap(ErrCodeUnsupportedEnvironment, "Camera is not supported in this environment", cause)
}

func Unknown(cause error) *AppError {
	return Wrap(ErrCodeUnknown, "Camera could not be started", cause)
}

func DecodeInvalid(reason string) *AppError {
	return New(ErrCodeDecodeInvalid, fmt.Sprintf("Invalid QR payload: %s", reason))
}

func Network(cause error) *AppError {
	return Wrap(ErrCodeNetwork, "Check-in request failed", cause)
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidState(action string, status string) *AppError {
	return New(ErrCodeInvalidState, fmt.Sprintf("Cannot %s while session is %s", action, status))
}

func NoActiveStream() *AppError {
	return New(ErrCodeNoActiveStream, "No camera stream is active")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
