package catalog

import (
	"errors"
	"fmt"
)

// Common errors returned by the catalog client.
var (
	// ErrNotFound indicates the search returned no usable record.
	ErrNotFound = errors.New("not found in catalog")

	// ErrAuthError indicates a missing or rejected API key.
	ErrAuthError = errors.New("catalog authentication error")

	// ErrRateLimited indicates the catalog throttled the request.
	ErrRateLimited = errors.New("catalog rate limit exceeded")

	// ErrInvalidResponse indicates a body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from catalog")
)

// APIError is a non-success HTTP response from the catalog.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err means the catalog has no record.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited reports whether err means the catalog throttled us.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
