package sched

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned when work is posted to a loop that has stopped.
var ErrStopped = errors.New("sched: loop stopped")

// Loop is a single-goroutine event loop. Closures posted to it, including
// timer callbacks, run one at a time in FIFO order.
type Loop struct {
	queue  chan func()
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewLoop creates a loop with the given queue depth. Call Run to start it.
func NewLoop(depth int, logger *slog.Logger) *Loop {
	if depth <= 0 {
		depth = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  make(chan func(), depth),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run executes posted closures until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.quit:
			return
		case fn := <-l.queue:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop callback panicked", "panic", r)
		}
	}()
	fn()
}

// Stop makes Run return. Pending closures are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn. It returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do runs fn on the loop and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !l.Post(func() { result <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-result:
		return err
	case <-l.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns the wall clock; its monotonic reading is what elapsed-time
// comparisons use.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn on the loop once after d. Must be called on the loop.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	rt := time.AfterFunc(d, func() {
		l.Post(func() { t.fire(fn) })
	})
	t.stop = func() { rt.Stop() }
	return t
}

// Every runs fn on the loop every d until cancelled. Must be called on the
// loop. The next tick is armed after fn returns, so a slow callback delays
// the schedule instead of piling up ticks.
func (l *Loop) Every(d time.Duration, fn func()) *Timer {
	t := &Timer{periodic: true}
	var arm func()
	arm = func() {
		rt := time.AfterFunc(d, func() {
			l.Post(func() {
				t.fire(fn)
				if t.Live() {
					arm()
				}
			})
		})
		t.stop = func() { rt.Stop() }
	}
	arm()
	return t
}
