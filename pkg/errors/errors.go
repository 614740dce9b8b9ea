package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound            = "NOT_FOUND"
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInternal            = "INTERNAL_ERROR"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeUploadFailed        = "UPLOAD_FAILED"
	CodeWriteRejected       = "WRITE_REJECTED"
	CodePresenceWriteFailed = "PRESENCE_WRITE_FAILED"
	CodeStaleMutation       = "STALE_MUTATION"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// UploadFailed reports that a media batch could not be stored. It never
// carries partial results.
func UploadFailed(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUploadFailed,
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// WriteRejected reports that the remote store refused a write (permission,
// offline, quota). The caller may retry explicitly.
func WriteRejected(message string, err error) *AppError {
	return &AppError{
		Code:    CodeWriteRejected,
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

func PresenceWriteFailed(err error) *AppError {
	return &AppError{
		Code:    CodePresenceWriteFailed,
		Message: "presence write failed",
		Status:  http.StatusAccepted,
		Err:     err,
	}
}

// StaleMutation is a local validation error: the target message is unknown,
// still optimistic, or not owned by the local user.
func StaleMutation(message string) *AppError {
	return &AppError{
		Code:    CodeStaleMutation,
		Message: message,
		Status:  http.StatusConflict,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
