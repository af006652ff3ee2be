package serve

import (
	"errors"
	"net/http"
)

// Per-request error classes. Every failure inside the dispatcher funnels into
// one of these before being converted to an HTTP status; none of them may
// escape a request goroutine.
var (
	// ErrRouteNotFound means no configured mount matches the request path.
	ErrRouteNotFound = errors.New("no mount matches path")

	// ErrResourceNotFound means the resolved filesystem path does not exist.
	ErrResourceNotFound = errors.New("file not found")

	// ErrPathForbidden means the canonical path escapes the mount root,
	// via ".." traversal or a symlink pointing outside it.
	ErrPathForbidden = errors.New("path escapes mount root")

	// ErrListingDisabled means the path names a directory on a mount with
	// directory listing turned off.
	ErrListingDisabled = errors.New("directory listing disabled")

	// ErrUpstreamUnavailable means the upstream could not be reached or
	// did not send response headers within the configured timeout.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// statusFor is the single error-to-status mapping used by the dispatcher,
// regardless of which mount type produced the failure. Unclassified errors
// are unexpected I/O failures and map to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRouteNotFound), errors.Is(err, ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPathForbidden), errors.Is(err, ErrListingDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
