// Package cdn implements driven.RemoteClient over the HTTP content delivery
// and sync APIs.
//
// Requests carry the access token as a bearer token and are throttled
// proactively with a token bucket. A 429 response becomes a RateLimitError
// carrying the server's Retry-After; retrying is left to the caller.
package cdn
