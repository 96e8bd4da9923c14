// Package apierror carries HTTP-facing error values between the core
// pipeline packages and the handlers.
package apierror

import (
	"errors"
	"net/http"
)

// APIError is an error with an HTTP status attached. Handlers translate it
// straight into a JSON error body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// BadRequest covers invalid vote directions, duplicate votes and
// missing-vote removals.
func BadRequest(message string) *APIError {
	return New(http.StatusBadRequest, message)
}

func NotFound(message string) *APIError {
	return New(http.StatusNotFound, message)
}

func TooManyRequests(message string) *APIError {
	return New(http.StatusTooManyRequests, message)
}

// StatusOf extracts the HTTP status from err, defaulting to 500 for
// anything that is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
