package services

import (
	"context"
	"fmt"
	"time"

	"stock-analyst/observability"
)

// RetryConfig bounds the retry loop for provider calls.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig matches the provider fetch policy: up to 3 attempts
// with exponential backoff doubling from 1s.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
}

// WithRetry runs fn up to MaxAttempts times, sleeping with doubling
// backoff between attempts. The backoff sleep is cancellable through ctx.
// onAttempt, if non-nil, is invoked with each attempt's outcome so callers
// can report individual results to a circuit breaker.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error, onAttempt func(err error)) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		err := fn()
		if onAttempt != nil {
			onAttempt(err)
		}
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt < config.MaxAttempts {
			observability.Warn("retrying after failed attempt",
				"attempt", attempt,
				"max_attempts", config.MaxAttempts,
				"error", err)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, lastErr)
}
