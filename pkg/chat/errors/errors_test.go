package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeToolExecution, "tool failed", nil)

	assert.NotNil(t, err)
	assert.Equal(t, ErrCodeToolExecution, err.Code)
	assert.Equal(t, "tool failed", err.Message)
	assert.Nil(t, err.Cause)
}

func TestNew_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrCodeProviderError, "transport failed", cause)

	assert.Equal(t, ErrCodeProviderError, err.Code)
	assert.Equal(t, cause, err.Cause)
}

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeInvalidInput, "empty message", nil)
	errorString := err.Error()

	assert.Contains(t, errorString, ErrCodeInvalidInput)
	assert.Contains(t, errorString, "empty message")
}

func TestAppError_Error_WithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(ErrCodeProviderError, "transport failed", cause)
	errorString := err.Error()

	assert.Contains(t, errorString, ErrCodeProviderError)
	assert.Contains(t, errorString, "transport failed")
	assert.Contains(t, errorString, "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(ErrCodeStoreFailed, "append failed", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestCodeOf(t *testing.T) {
	err := New(ErrCodeNotFound, "no such session", nil)

	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
	assert.Equal(t, ErrCodeNotFound, CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, "", CodeOf(errors.New("plain error")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestHasCode_NestedChain(t *testing.T) {
	inner := New(ErrCodeProviderError, "rate limited", nil)
	outer := New(ErrCodeToolExecution, "handler failed", inner)

	assert.True(t, HasCode(outer, ErrCodeToolExecution))
	assert.True(t, HasCode(outer, ErrCodeProviderError))
	assert.False(t, HasCode(outer, ErrCodeNotFound))
}

func TestErrorCodes(t *testing.T) {
	// Verify all error codes are unique and non-empty
	codes := []string{
		ErrCodeInvalidInput,
		ErrCodeNotAuthenticated,
		ErrCodeNotFound,
		ErrCodeProviderNotConfigured,
		ErrCodeProviderError,
		ErrCodeUnknownTool,
		ErrCodeToolExecution,
		ErrCodeSessionCreate,
		ErrCodeStoreFailed,
		ErrCodeConfigInvalid,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
