package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := NotFound("hero %s", "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "hero abc: not found", err.Error())

	wrapped := Conflict("quest already completed")
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrNotFound))

	cause := errors.New("connection reset")
	unavailable := Unavailable("get hero", cause)
	assert.True(t, errors.Is(unavailable, ErrStoreUnavailable))
	assert.True(t, errors.Is(unavailable, cause))
	assert.True(t, Retryable(unavailable))
	assert.False(t, Retryable(Validation("bad")))
}
