package cdn

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/replica/internal/logger"
)

const (
	// HeaderRetryAfter is the standard retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"

	// HeaderRateLimitReset is the vendor header with seconds until the limit resets.
	HeaderRateLimitReset = "X-Contentful-RateLimit-Reset"
)

// RateLimiter throttles requests before they are sent.
type RateLimiter struct {
	bucket *rate.Limiter
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
// A non-positive rps disables throttling.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{bucket: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		logger.Debug("cdn: throttled for %s", waited.Round(time.Millisecond))
	}
	return nil
}

// CheckRateLimit returns a RateLimitError for a 429 response, nil otherwise.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	return &RateLimitError{
		RetryAfter: parseRetryAfter(resp.Header, time.Now()),
		URL:        resp.Request.URL.String(),
	}
}

// parseRetryAfter reads Retry-After, falling back to the vendor reset header.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get(HeaderRetryAfter)); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d
			}
			return 0
		}
	}
	if v := strings.TrimSpace(h.Get(HeaderRateLimitReset)); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
