package store

import (
	"context"
	"time"

	"heroQuestAPI/internal/apperr"
)

const (
	defaultReadAttempts = 3
	defaultRetryBackoff = 50 * time.Millisecond
)

// RetryPolicy retries reads that failed with apperr.ErrStoreUnavailable.
// The wait doubles after every failed attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: defaultReadAttempts, Backoff: defaultRetryBackoff}
}

// noRetry is used inside transactions, where a failed statement aborts the
// whole unit of work anyway.
var noRetry = RetryPolicy{Attempts: 1}

func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	wait := p.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !apperr.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
