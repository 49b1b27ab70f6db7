package utils

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
	CodeNotImplemented = "NOT_IMPLEMENTED"
)

// APIError is an error that knows which HTTP response it maps to.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError builds an APIError wrapping err.
func NewAPIError(status int, code, message string, err error) *APIError {
	return &APIError{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeBadRequest, message, nil)
}

func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(message string) *APIError {
	return NewAPIError(http.StatusNotFound, CodeNotFound, message, nil)
}

func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, CodeConflict, message, nil)
}

// Internal reports a backend failure with the underlying message embedded.
func Internal(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeInternal, err.Error(), err)
}

// WriteError writes err as a JSON error response. Errors that are not an
// APIError are reported as internal errors.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = Internal(err)
	}
	WriteErrorResponseWithCode(w, apiErr.Status, apiErr.Code, apiErr.Error())
}
