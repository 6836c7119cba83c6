package extract

import "errors"

var (
	// ErrInvalidSelector is returned when a selector does not compile.
	ErrInvalidSelector = errors.New("invalid CSS selector")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")
)
