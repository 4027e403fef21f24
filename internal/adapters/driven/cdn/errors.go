package cdn

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
)

// ErrInvalidToken indicates a sync URL without a sync_token parameter.
var ErrInvalidToken = errors.New("cdn: invalid sync token")

// RateLimitError represents a 429 response.
type RateLimitError struct {
	// RetryAfter is the wait requested by the server. Zero when not sent.
	RetryAfter time.Duration
	URL        string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("cdn: rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "cdn: rate limit exceeded"
}

// RetryDelay returns the wait requested by the server. See domain.RetryAfter.
func (e *RateLimitError) RetryDelay() time.Duration {
	return e.RetryAfter
}

// Is reports whether target is domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrRateLimited
}

// APIError represents a non-success API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cdn: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Is maps status codes onto domain errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	default:
		return false
	}
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

