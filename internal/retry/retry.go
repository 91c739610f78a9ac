// Package retry wraps external calls with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy for exchange and advisory calls: 3 attempts, doubling delay.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 500 * time.Millisecond
)

func policy(ctx context.Context, attempts int, baseDelay time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op, retrying transient failures with exponential backoff until the
// attempt budget is spent or the context is canceled.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, op func() error) error {
	return backoff.Retry(op, policy(ctx, attempts, baseDelay))
}

// Value is like Do for operations that return a result.
func Value[T any](ctx context.Context, attempts int, baseDelay time.Duration, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(op, policy(ctx, attempts, baseDelay))
}
