package render

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer coalesces bursts of triggers into one run of fn after a quiet
// period. At most one run is in progress at a time: a run requested while
// another is drawing is deferred until that one finishes.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	running atomic.Bool
	pending atomic.Bool
	runs    atomic.Int64
}

// NewDebouncer creates a debouncer running fn delay after the last trigger
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules a run, pushing back any run that has not started yet
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush cancels any scheduled run and runs fn now on the caller's goroutine.
// It returns false when another run was in progress; that run is then
// followed by one more.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	return d.run()
}

// Stop cancels a scheduled run and ignores later triggers
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Runs returns how many times fn has completed
func (d *Debouncer) Runs() int64 { return d.runs.Load() }

// fire is the timer callback
func (d *Debouncer) fire() { d.run() }

func (d *Debouncer) run() bool {
	d.pending.Store(true)
	if !d.running.CompareAndSwap(false, true) {
		return false
	}
	d.pending.Store(false)

	d.fn()
	d.runs.Add(1)
	d.running.Store(false)

	// a request that lost the race above is picked up here
	if d.pending.Load() {
		d.Trigger()
	}
	return true
}
