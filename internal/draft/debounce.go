package draft

import (
	"sync"
	"time"
)

// flushScheduler coalesces bursts of persist requests into one write per
// delay window. Flush runs the pending write synchronously, for the
// checkpoints (step changes, partition switches) that must not rely on the
// timer firing later.
type flushScheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	flushFn func()
	timer   *time.Timer
	pending bool
}

func newFlushScheduler(delay time.Duration, flushFn func()) *flushScheduler {
	return &flushScheduler{delay: delay, flushFn: flushFn}
}

// Schedule marks a write pending and (re)starts the coalescing window.
func (f *flushScheduler) Schedule() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = true
	if f.timer == nil {
		f.timer = time.AfterFunc(f.delay, f.fire)
		return
	}
	f.timer.Reset(f.delay)
}

func (f *flushScheduler) fire() {
	f.mu.Lock()
	if !f.pending {
		f.mu.Unlock()
		return
	}
	f.pending = false
	f.mu.Unlock()
	f.flushFn()
}

// Flush runs the pending write now, if there is one.
func (f *flushScheduler) Flush() {
	f.mu.Lock()
	if !f.pending {
		f.mu.Unlock()
		return
	}
	f.pending = false
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()
	f.flushFn()
}

// Stop drops any pending write without running it.
func (f *flushScheduler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	if f.timer != nil {
		f.timer.Stop()
	}
}
