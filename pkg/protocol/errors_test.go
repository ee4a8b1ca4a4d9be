package protocol

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryable_Classification(t *testing.T) {
	base := errors.New("connection reset")

	assert.False(t, IsRetryable(base))
	assert.True(t, IsRetryable(Retryable(base)))
	assert.True(t, IsRetryable(fmt.Errorf("webhook call: %w", Retryable(base))))
	assert.True(t, IsRetryable(Retryablef("timeout after %s", time.Second)))

	assert.Nil(t, Retryable(nil))
}

func TestRetryable_Unwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := Retryable(base)

	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "boom", wrapped.Error())
}

func TestSuspend(t *testing.T) {
	err := Suspend(5 * time.Minute)

	suspend, ok := AsSuspend(err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, suspend.Duration)

	_, ok = AsSuspend(errors.New("plain"))
	assert.False(t, ok)

	wrapped := fmt.Errorf("delay action: %w", err)
	_, ok = AsSuspend(wrapped)
	assert.True(t, ok)
}
