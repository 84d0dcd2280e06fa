package remote

import "errors"

// Domain errors for the remote device API.
var (
	// ErrDisabled is returned when no base URL is configured.
	ErrDisabled = errors.New("remote: disabled (no base URL)")

	// ErrNotFound is returned when the remote API has no such device or file.
	ErrNotFound = errors.New("remote: not found")

	// ErrUnavailable is returned when the remote API cannot be reached or
	// answers with a server error.
	ErrUnavailable = errors.New("remote: unavailable")

	// ErrBadResponse is returned when a response body cannot be decoded.
	ErrBadResponse = errors.New("remote: bad response")
)
