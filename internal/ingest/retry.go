package ingest

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry calls fn until it succeeds, doubling the delay after each failure.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries)), ctx)
	return backoff.Retry(func() error {
		return fn(ctx)
	}, policy)
}
