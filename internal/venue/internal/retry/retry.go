// Package retry implements the bounded retry discipline spec.md §4.1
// requires of every read-only venue query: original_source/exchanges/lighter.py
// wraps such calls in a `@query_retry` decorator that either returns a
// default value or reraises once attempts are exhausted. WithRetry is the
// Go equivalent of that decorator, expressed as a generic function instead
// of a decorator since Go has no function-wrapping annotations.
//
// Mutating calls (place/cancel an order) never use this helper — they
// implement their own attempt-N / REJECTED-retry loop, because a mutation
// retried blindly could double-submit.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config tunes WithRetry's attempt count and backoff.
type Config struct {
	Attempts int
	Delay    time.Duration
	// Reraise, when true, returns the last error instead of DefaultValue
	// once attempts are exhausted — matching query_retry(reraise=True).
	Reraise      bool
	DefaultValue any
}

// DefaultConfig matches the original's typical query_retry usage: 3
// attempts, 1 second between attempts, default-return on exhaustion.
func DefaultConfig() Config {
	return Config{Attempts: 3, Delay: time.Second}
}

// WithRetry calls fn up to cfg.Attempts times, waiting cfg.Delay between
// attempts, and returns the first successful result. If every attempt
// fails: cfg.Reraise true returns the last error; false returns
// cfg.DefaultValue when it holds a T (otherwise the zero value of T) with a
// nil error, matching query_retry(default_return=...).
func WithRetry[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}

	if cfg.Reraise {
		return zero, fmt.Errorf("retry exhausted after %d attempts: %w", attempts, lastErr)
	}
	if v, ok := cfg.DefaultValue.(T); ok {
		return v, nil
	}
	return zero, nil
}
