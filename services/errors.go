package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredential is returned when a client is used without its API key
var ErrMissingCredential = errors.New("missing credential")

// ErrNotFound is returned when an upstream has no data for the request
var ErrNotFound = errors.New("not found")

// MissingCredential wraps ErrMissingCredential with the provider name
func MissingCredential(provider string) error {
	return fmt.Errorf("%s: %w", provider, ErrMissingCredential)
}

// APIError represents a non-2xx response from an upstream API
type APIError struct {
	Service    string
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error: status %d (endpoint: %s)", e.Service, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("%s API error: %s (status %d, endpoint: %s)", e.Service, e.Message, e.StatusCode, e.Endpoint)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Retryable reports whether the status code is worth another attempt
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
