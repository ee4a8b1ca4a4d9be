package execution

import (
	"sync"
	"time"
)

// Timers is the shared timer arena for suspended executions and retry
// backoffs. One entry per execution; scheduling a new continuation for an
// execution replaces any pending one.
type Timers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimers() *Timers {
	return &Timers{timers: make(map[string]*time.Timer)}
}

// Schedule arms a continuation for the key after d. The callback removes
// itself from the arena before running.
func (t *Timers) Schedule(key string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[key]; ok {
		existing.Stop()
	}

	t.timers[key] = time.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()

		fn()
	})
}

// Cancel stops a pending continuation. Reports whether one was armed.
func (t *Timers) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.timers[key]
	if !ok {
		return false
	}

	timer.Stop()
	delete(t.timers, key)

	return true
}

// CancelAll stops every pending continuation, for shutdown.
func (t *Timers) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}

// Len reports how many continuations are armed.
func (t *Timers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.timers)
}
