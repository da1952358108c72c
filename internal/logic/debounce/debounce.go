package debounce

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of triggers into a single callback, fired
// after a quiet period of the configured duration. Each Trigger resets
// the timer; only the function passed to the latest Trigger runs.
type Debouncer struct {
	d     time.Duration
	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Debouncer with the given quiet period.
func New(d time.Duration) *Debouncer {
	return &Debouncer{d: d}
}

// Trigger schedules fn to run after the quiet period, cancelling any
// previously scheduled function. fn runs on a timer goroutine.
func (b *Debouncer) Trigger(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.d, fn)
}

// Stop cancels any pending callback.
func (b *Debouncer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
