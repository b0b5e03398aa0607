package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidBaseURL = errors.New("invalid API base URL")
	ErrRequestFailed  = errors.New("API request failed")
	ErrEncodeBody     = errors.New("failed to encode request body")
	ErrDecodeBody     = errors.New("failed to decode response body")
)

// Error is returned for any non-2xx response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the backend-provided "message" field, empty when absent.
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// AsError extracts the *Error wrapped in err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.StatusCode == code
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}

// Message returns the backend message carried by err, or fallback.
func Message(err error, fallback string) string {
	if apiErr, ok := AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
