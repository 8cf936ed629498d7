package common

import (
	"errors"
	"net/http"
)

// Error codes rendered by the HTTP front end.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeConfirmRequired = "CONFIRMATION_REQUIRED"
	CodeActionFailed    = "ACTION_FAILED"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// BadRequest builds a 400 AppError for invalid client input.
func BadRequest(message string, err error) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest, err)
}

// AsAppError extracts an AppError from err, wrapping unknown errors as 500s.
func AsAppError(err error) *AppError {
	var target *AppError
	if errors.As(err, &target) {
		return target
	}
	return NewAppError(CodeInternal, "internal error", http.StatusInternalServerError, err)
}
