package provider

import (
	"context"
	"time"
)

// RetryPolicy owns the per-symbol fetch retry schedule: transient failures
// are retried with exponential backoff, everything else returns
// immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the scan contract: up to 3 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Do runs fn until it succeeds, fails non-transiently, or attempts are
// exhausted. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
