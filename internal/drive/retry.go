package drive

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of transient listing failures.
type RetryPolicy struct {
	// MaxAttempts counts the first try plus retries. Zero means 3.
	MaxAttempts int
	// Base is the initial backoff interval. Zero means 2s.
	Base time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Base <= 0 {
		p.Base = 2 * time.Second
	}
	return p
}

// WithRetry runs fn, retrying with exponential backoff while the error
// is Retryable and attempts remain. Non-retryable errors abort
// immediately.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	policy = policy.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.Base
	bo.RandomizationFactor = 0.2
	bo.Multiplier = 2.0

	wrapped := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		slog.Debug("retrying drive call", "error", err)
		return err
	}

	limited := backoff.WithMaxRetries(
		backoff.WithContext(bo, ctx),
		uint64(policy.MaxAttempts-1),
	)
	return backoff.Retry(wrapped, limited)
}
