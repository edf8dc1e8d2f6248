package reddit

import "errors"

// Sentinel errors for the upstream failure classes. Callers match them with
// errors.Is after unwrapping.
var (
	// ErrAuthentication means the credentials were rejected or the token
	// expired. Fatal, never retried.
	ErrAuthentication = errors.New("reddit: authentication failed")

	// ErrRateLimited means the API signalled throttling and the bounded
	// retry budget was exhausted.
	ErrRateLimited = errors.New("reddit: rate limited")

	// ErrNotFound means the subreddit does not exist or is private/banned.
	ErrNotFound = errors.New("reddit: subreddit not found")

	// ErrMalformedResponse means a payload was missing a required field.
	// This indicates upstream contract drift and aborts the run.
	ErrMalformedResponse = errors.New("reddit: malformed response")
)
