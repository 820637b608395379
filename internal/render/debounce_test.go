package render

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var calls atomic.Int64
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
	}

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected one run, got %d", got)
	}
}

func TestDebouncer_NoOverlappingRuns(t *testing.T) {
	var active, maxActive atomic.Int64
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	d := NewDebouncer(time.Millisecond, func() {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		started <- struct{}{}
		<-release
		active.Add(-1)
	})
	defer d.Stop()

	done := make(chan bool)
	go func() { done <- d.Flush() }()
	<-started

	if d.Flush() {
		t.Error("second flush must not run while the first is drawing")
	}

	close(release)
	if !<-done {
		t.Error("first flush should have run")
	}

	// the deferred request runs once the first pass finished
	waitFor(t, func() bool { return d.Runs() == 2 })
	if maxActive.Load() != 1 {
		t.Errorf("runs overlapped: %d concurrent", maxActive.Load())
	}
}

func TestDebouncer_StopCancels(t *testing.T) {
	var calls atomic.Int64
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Trigger()

	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("expected no runs after stop, got %d", calls.Load())
	}
}

func TestDebouncer_TimerRunsAfterDelay(t *testing.T) {
	var calls atomic.Int64
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	d.Trigger()
	waitFor(t, func() bool { return d.Runs() == 1 })
	if calls.Load() != 1 {
		t.Errorf("expected one timer run, got %d", calls.Load())
	}
}
