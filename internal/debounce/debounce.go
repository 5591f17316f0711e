// Package debounce delays work until input has been quiet for a while.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used for raw-text edits.
const DefaultDelay = 500 * time.Millisecond

// Debouncer runs at most one pending function. Scheduling a new function
// cancels the one still waiting.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// Handle identifies one scheduled function.
type Handle struct {
	d   *Debouncer
	gen uint64
}

// New creates a Debouncer. A delay <= 0 means DefaultDelay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending function and arranges for fn to run once the
// delay has passed without another call. fn runs on its own goroutine.
func (d *Debouncer) Schedule(fn func()) *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	h := &Handle{d: d, gen: d.gen}
	if d.stopped {
		return h
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A timer that fired while Schedule or Cancel held the lock is stale.
		if d.stopped || d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
	return h
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending function. Later calls to Schedule do nothing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Cancel stops the scheduled function if it has not started yet and reports
// whether it did.
func (h *Handle) Cancel() bool {
	if h == nil || h.d == nil {
		return false
	}
	d := h.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != h.gen || d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}
