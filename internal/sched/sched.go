// Package sched is the cooperative timer facility of the keyboard core.
//
// Every state transition of the core runs on one logical thread. A Scheduler
// hands out Timers whose callbacks are delivered on that same thread, so a
// callback never races an input event. A Timer is an owned, cancellable
// token: once cancelled (or, for one-shot timers, once fired) its callback is
// dropped even if it was already queued.
package sched

import "time"

// Scheduler schedules callbacks on the core's thread.
type Scheduler interface {
	// Now returns the scheduler's monotonic time.
	Now() time.Time

	// AfterFunc runs fn once after d.
	AfterFunc(d time.Duration, fn func()) *Timer

	// Every runs fn every d until the returned Timer is cancelled.
	Every(d time.Duration, fn func()) *Timer
}

// Timer is a handle to a scheduled callback. All methods must be called on
// the scheduler's thread. A nil Timer is valid and never live.
type Timer struct {
	done     bool
	periodic bool
	stop     func()
}

// Cancel stops the timer. It is safe to call more than once.
func (t *Timer) Cancel() {
	if t == nil || t.done {
		return
	}
	t.done = true
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

// Live reports whether the callback can still fire.
func (t *Timer) Live() bool {
	return t != nil && !t.done
}

// fire runs fn unless the timer is dead. One-shot timers die before fn runs,
// so fn observes Live() == false for its own timer.
func (t *Timer) fire(fn func()) {
	if t.done {
		return
	}
	if !t.periodic {
		t.done = true
		t.stop = nil
	}
	fn()
}
