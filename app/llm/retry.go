package llm

import (
	"context"
	"log/slog"
	"time"
)

// Policy controls the retry loop: attempt count, initial delay
// (doubled after every failed attempt), and which errors are worth
// retrying at all.
type Policy struct {
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the error is not retryable, attempts
// are exhausted, or the context is done.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	delay := policy.Delay
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
		if attempt == policy.Attempts {
			break
		}

		slog.Warn("Retryable error, backing off",
			"attempt", attempt, "max_attempts", policy.Attempts,
			"delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return zero, lastErr
}
