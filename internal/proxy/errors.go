package proxy

import "errors"

var (
	// ErrInvalidCandidate is returned when a candidate is not a valid
	// "host:port" or "scheme://host:port" address.
	ErrInvalidCandidate = errors.New("invalid proxy candidate")

	// ErrUnsupportedScheme is returned for candidates whose scheme is not
	// http, https, socks5 or socks5h.
	ErrUnsupportedScheme = errors.New("unsupported proxy scheme")

	// ErrProbeFailed is returned when a probe through a candidate did not
	// get a 2xx response.
	ErrProbeFailed = errors.New("proxy probe failed")

	// ErrNoUsableProxy is returned by Choose when every attempt failed or
	// there were no candidates. Callers fall back to a direct connection.
	ErrNoUsableProxy = errors.New("no working proxy found")
)
