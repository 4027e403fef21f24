package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/logger"
)

// retry runs fn until it succeeds, fails permanently, or maxRetries
// retries were spent. The delay doubles from base on every attempt unless
// the remote asked for a specific wait.
func retry(ctx context.Context, op string, maxRetries int, base time.Duration, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if domain.IsPermanent(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt >= maxRetries {
			return fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, attempt+1, err)
		}

		delay := base << attempt
		if wait, ok := domain.RetryAfter(err); ok {
			delay = wait
		}
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt+1, maxRetries+1, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
