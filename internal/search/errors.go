package search

import (
	"errors"
	"fmt"
)

// ErrFetchFailed wraps every failure to obtain the search page.
var ErrFetchFailed = errors.New("failed to fetch search page")

// StatusError is returned when the search page answers with a non-2xx status.
type StatusError struct {
	// StatusCode is the HTTP status received.
	StatusCode int

	// URL is the page that was requested.
	URL string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Unwrap lets errors.Is match ErrFetchFailed.
func (e *StatusError) Unwrap() error {
	return ErrFetchFailed
}
