// Package errors defines the error taxonomy shared by the chat core.
// Every failure crossing a public package boundary is an *AppError with one
// of the codes below; callers branch on CodeOf rather than on error strings.
package errors

import (
	"errors"
	"fmt"
)

// AppError represents an application-level error with a code and optional cause
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeNotAuthenticated      = "NOT_AUTHENTICATED"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	ErrCodeProviderError         = "PROVIDER_ERROR"
	ErrCodeUnknownTool           = "UNKNOWN_TOOL"
	ErrCodeToolExecution         = "TOOL_EXECUTION_FAILED"
	ErrCodeSessionCreate         = "SESSION_CREATE_FAILED"
	ErrCodeStoreFailed           = "STORE_FAILED"
	ErrCodeConfigInvalid         = "CONFIG_INVALID"
	ErrCodeExchangeCancelled     = "EXCHANGE_CANCELLED"
	ErrCodeRateLimited           = "RATE_LIMITED"
)

// CodeOf returns the code of the first AppError in err's chain, or empty string
// if the chain contains none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err's chain contains an AppError with the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
