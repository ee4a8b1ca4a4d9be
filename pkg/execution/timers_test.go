package execution

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimers_ScheduleFires(t *testing.T) {
	timers := NewTimers()

	var fired atomic.Bool

	timers.Schedule("exec-1", 10*time.Millisecond, func() {
		fired.Store(true)
	})

	require.Eventually(t, func() bool {
		return fired.Load()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, timers.Len())
}

func TestTimers_CancelStopsPending(t *testing.T) {
	timers := NewTimers()

	var fired atomic.Bool

	timers.Schedule("exec-1", 30*time.Millisecond, func() {
		fired.Store(true)
	})

	assert.True(t, timers.Cancel("exec-1"))
	assert.False(t, timers.Cancel("exec-1"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTimers_RescheduleReplaces(t *testing.T) {
	timers := NewTimers()

	var count atomic.Int32

	timers.Schedule("exec-1", 20*time.Millisecond, func() {
		count.Add(1)
	})
	timers.Schedule("exec-1", 20*time.Millisecond, func() {
		count.Add(1)
	})

	require.Eventually(t, func() bool {
		return count.Load() == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestTimers_CancelAll(t *testing.T) {
	timers := NewTimers()

	timers.Schedule("exec-1", time.Hour, func() {})
	timers.Schedule("exec-2", time.Hour, func() {})
	require.Equal(t, 2, timers.Len())

	timers.CancelAll()
	assert.Equal(t, 0, timers.Len())
}
