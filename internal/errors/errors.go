package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound     ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited  ErrCode = "RATE_LIMITED"
	ErrCodeNetwork      ErrCode = "NETWORK_ERROR"
	ErrCodeInvalid      ErrCode = "INVALID_REQUEST"
	ErrCodeCancelled    ErrCode = "CANCELLED"
	ErrCodeInternal     ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	ResetAt time.Time // set for rate-limited errors
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewRateLimitedError creates a new rate limited error carrying the reset time
func NewRateLimitedError(message string, resetAt time.Time) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		ResetAt: resetAt,
	}
}

// NewNetworkError creates a new transient network error
func NewNetworkError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeNetwork,
		Message: message,
		Err:     err,
	}
}

// NewInvalidError creates a new invalid request error
func NewInvalidError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalid,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the application error code, or ErrCodeInternal when the
// error carries none. Context cancellation maps to ErrCodeCancelled.
func CodeOf(err error) ErrCode {
	if err == nil {
		return ""
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return ErrCodeCancelled
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsUnauthorized checks if the error is an authentication or permission error
func IsUnauthorized(err error) bool {
	return CodeOf(err) == ErrCodeUnauthorized
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return CodeOf(err) == ErrCodeRateLimited
}

// IsTransient checks if the error is worth retrying
func IsTransient(err error) bool {
	return CodeOf(err) == ErrCodeNetwork
}

// IsCancelled checks if the error was caused by context cancellation
func IsCancelled(err error) bool {
	return CodeOf(err) == ErrCodeCancelled
}

// ResetTime returns the rate-limit reset time carried by the error, if any.
func ResetTime(err error) (time.Time, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code == ErrCodeRateLimited {
		return appErr.ResetAt, true
	}
	return time.Time{}, false
}

// Reason maps an error onto the stable failure reason reported to callers.
func Reason(err error) string {
	switch CodeOf(err) {
	case ErrCodeUnauthorized:
		return "auth"
	case ErrCodeNotFound:
		return "not-found"
	case ErrCodeRateLimited:
		// A rate limit only surfaces as a final failure when the required
		// wait exceeded the configured maximum.
		return "rate-limit-timeout"
	case ErrCodeNetwork:
		return "network"
	case ErrCodeInvalid:
		return "invalid"
	case ErrCodeCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}
