package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a vodnote error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrForbidden         ErrorCode = "FORBIDDEN"          // 403
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrPlayerNotReady    ErrorCode = "PLAYER_NOT_READY"   // 409
	ErrNothingRecognized ErrorCode = "NOTHING_RECOGNIZED" // 422
	ErrCancelled         ErrorCode = "CANCELLED"          // 499
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// VodnoteError represents a structured error with code, status, and details.
type VodnoteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VodnoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VodnoteError {
	return &VodnoteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewForbidden creates a 403 error for requests refused before handling,
// such as a failed CSRF check.
func NewForbidden(msg string) *VodnoteError {
	return &VodnoteError{
		Code:    ErrForbidden,
		Status:  403,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing entry or record.
func NewNotFound(identifier string) *VodnoteError {
	return &VodnoteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewPlayerNotReady creates a 409 error for commands that need a live playback session.
func NewPlayerNotReady(state string) *VodnoteError {
	return &VodnoteError{
		Code:    ErrPlayerNotReady,
		Status:  409,
		Message: fmt.Sprintf("player is not ready (state %s)", state),
		Details: map[string]any{"state": state},
	}
}

// NewNothingRecognized creates a 422 error when an import block yields no entries.
func NewNothingRecognized(lines int) *VodnoteError {
	return &VodnoteError{
		Code:    ErrNothingRecognized,
		Status:  422,
		Message: "no timestamped lines recognized",
		Details: map[string]any{"lines": lines},
	}
}

// NewCancelled creates a 499 error when an operation was cancelled.
func NewCancelled(operation string) *VodnoteError {
	return &VodnoteError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VodnoteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VodnoteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a VodnoteError with the given code.
func Is(err error, code ErrorCode) bool {
	var vErr *VodnoteError
	if stderrors.As(err, &vErr) {
		return vErr.Code == code
	}
	return false
}
