package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"heroQuestAPI/internal/apperr"
)

func TestRetryPolicyRetriesUnavailable(t *testing.T) {
	p := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
	calls := 0

	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return apperr.Unavailable("get hero", errors.New("connection reset"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyGivesUp(t *testing.T) {
	p := RetryPolicy{Attempts: 2, Backoff: time.Millisecond}
	calls := 0

	err := p.Do(context.Background(), func() error {
		calls++
		return apperr.Unavailable("get hero", errors.New("timeout"))
	})

	assert.True(t, errors.Is(err, apperr.ErrStoreUnavailable))
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyTerminalErrors(t *testing.T) {
	p := DefaultRetryPolicy()
	calls := 0

	err := p.Do(context.Background(), func() error {
		calls++
		return apperr.NotFound("hero")
	})

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := RetryPolicy{Attempts: 5, Backoff: time.Hour}
	calls := 0

	err := p.Do(ctx, func() error {
		calls++
		return apperr.Unavailable("list heroes", errors.New("refused"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
