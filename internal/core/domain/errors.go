package domain

import (
	"errors"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates the remote reported a missing entity.
	// Stores never return it for absent ids; they return a nil Document instead.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidDocument indicates a Document is missing its id or has an unknown kind.
	// Such documents are rejected before they reach a Store.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidFilter indicates a query filter could not be parsed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrNotCacheable indicates a cache key was requested for a query whose
	// result cannot be derived deterministically.
	ErrNotCacheable = errors.New("query is not cacheable")

	// ErrReadOnly indicates a write was attempted against a read-only Store.
	ErrReadOnly = errors.New("store is read-only")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrRetriesExhausted indicates a remote call kept failing after all retries.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrUnsupportedBackend indicates an unknown storage backend name.
	ErrUnsupportedBackend = errors.New("unsupported backend")

	// Remote Errors.

	// ErrUnauthorized indicates the remote rejected the configured credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// IsPermanent reports whether a remote error must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized)
}

// RetryAfter returns the wait a remote asked for before retrying, if err carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var delayed interface{ RetryDelay() time.Duration }
	if errors.As(err, &delayed) {
		if d := delayed.RetryDelay(); d > 0 {
			return d, true
		}
	}
	return 0, false
}
