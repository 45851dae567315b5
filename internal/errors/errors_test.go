package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeInvalidState, "Cannot start")
		assert.Equal(t, "INVALID_STATE: Cannot start", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Network(cause)
		assert.Contains(t, err.Error(), "NETWORK_ERROR")
		assert.Contains(t, err.Error(), "Check-in request failed")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "text", "reason": "empty"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"InsecureContext", func() *AppError { return InsecureContext("example.com") }, ErrCodeInsecureContext},
		{"PermissionDenied", func() *AppError { return PermissionDenied(cause) }, ErrCodePermissionDenied},
		{"NoCameraFound", func() *AppError { return NoCameraFound(cause) }, ErrCodeNoCameraFound},
		{"UnsupportedEnvironment", func() *AppError { return UnsupportedEnvironment(cause) }, ErrCodeUnsupportedEnvironment},
		{"Unknown", func() *AppError { return Unknown(cause) }, ErrCodeUnknown},
		{"DecodeInvalid", func() *AppError { return DecodeInvalid("not json") }, ErrCodeDecodeInvalid},
		{"Network", func() *AppError { return Network(cause) }, ErrCodeNetwork},
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidState", func() *AppError { return InvalidState("start", "scanning") }, ErrCodeInvalidState},
		{"NoActiveStream", func() *AppError { return NoActiveStream() }, ErrCodeNoActiveStream},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestIsAppError(t *testing.T) {
	t.Run("returns true for AppError", func(t *testing.T) {
		assert.True(t, IsAppError(NoActiveStream()))
	})

	t.Run("returns false for standard error", func(t *testing.T) {
		assert.False(t, IsAppError(errors.New("standard error")))
	})

	t.Run("returns true for fmt-wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("acquire: %w", NoCameraFound(nil))
		assert.True(t, IsAppError(wrapped))
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := InvalidState("reset", "idle")
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		extracted, ok := AsAppError(errors.New("standard error"))
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		assert.Equal(t, ErrCodePermissionDenied, GetCode(PermissionDenied(nil)))
	})

	t.Run("returns ErrCodeInternal for standard error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("standard error")))
	})
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", Network(errors.New("eof")))

	assert.True(t, HasCode(err, ErrCodeNetwork))
	assert.False(t, HasCode(err, ErrCodeUnknown))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeNetwork))
}

func TestInsecureContextMessage(t *testing.T) {
	err := InsecureContext("kiosk.example.com")
	assert.Contains(t, err.Message, `"kiosk.example.com"`)
}
