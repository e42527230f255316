// Package services provides business logic and application services.
// Services coordinate between handlers and the database and upstream
// Google APIs, implementing the OAuth flow, calendar retrieval,
// category management, and important-event settings.
package services

import "errors"

// Sentinel errors returned by the services layer. Handlers map these to
// HTTP status codes; anything else is treated as an internal error.
var (
	// ErrInvalidState indicates the OAuth callback carried a state value
	// that was never issued, was already consumed, or has expired. The
	// three cases are indistinguishable once the Redis key is gone.
	ErrInvalidState = errors.New("invalid or expired oauth state")

	// ErrReauthRequired indicates the user's Google tokens could not be
	// refreshed and a new sign-in is needed.
	ErrReauthRequired = errors.New("reauthentication required")

	// ErrUpstreamFetch indicates a Google API call failed after
	// authentication succeeded.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrNotFound indicates a requested resource does not exist or is
	// not owned by the requesting user.
	ErrNotFound = errors.New("resource not found")
)
