package grain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingToken = errors.New("grain: api token is required")
	ErrUnauthorized = errors.New("grain: unauthorized")
	ErrNotFound     = errors.New("grain: not found")
	ErrRateLimited  = errors.New("grain: rate limited")
	ErrServerError  = errors.New("grain: server error")
)

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("grain: %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("grain: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap maps the status code to one of the package sentinels
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServerError
	}
	return nil
}

// Temporary reports whether retrying the request may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
