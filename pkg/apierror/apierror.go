package apierror

import (
	"fmt"
	"net/http"
)

// APIError is a failure that maps directly onto a `{message, error}` response body.
type APIError struct {
	Message    string `json:"message"`
	Detail     any    `json:"error,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Detail != nil {
		return fmt.Sprintf("%d %s: %v", e.HTTPStatus, e.Message, e.Detail)
	}

	return fmt.Sprintf("%d %s", e.HTTPStatus, e.Message)
}

func New(message string, detail any, status int) *APIError {
	return &APIError{Message: message, Detail: detail, HTTPStatus: status}
}

func BadRequest(message string, detail any) *APIError {
	return New(message, detail, http.StatusBadRequest)
}

func Forbidden(message string) *APIError {
	return New(message, nil, http.StatusForbidden)
}

func Unauthorized(message string) *APIError {
	return New(message, nil, http.StatusUnauthorized)
}
