package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any non-2xx response from the task API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string

	// Message is the server-supplied explanation, when the body carried one.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error %d on %s %s", e.StatusCode, e.Method, e.Path)
}

// errorBody is the error payload shape used by the task server.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the task API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsAuthError reports whether err is a 401 or 403 from the task API.
func IsAuthError(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
