package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of a transient-failing operation.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	JitterFraction float64
}

// NewRetryPolicy builds a policy from config-level attempt/delay values.
func NewRetryPolicy(attempts, delayMS int, jitter float64) RetryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{
		MaxAttempts:    attempts,
		BaseDelay:      time.Duration(delayMS) * time.Millisecond,
		JitterFraction: jitter,
	}
}

// Do runs op until it succeeds, fails permanently, exhausts the attempt
// budget, or ctx is done. Delays grow exponentially from BaseDelay with the
// configured jitter.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.BaseDelay
	policy.RandomizationFactor = p.JitterFraction
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0
	policy.Reset()

	wrapped := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.MaxAttempts-1)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, wrapped)
}
