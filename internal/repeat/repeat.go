// Package repeat implements auto-repeat of held ordinary keys.
//
// Each contact owns at most one repeat record. A record holds the initial
// delay timer and, once that fires, the interval timer that taps the key.
// Callbacks check that their record is still the contact's current one before
// tapping, so a tick queued before a cancel is dropped.
package repeat

import (
	"log/slog"
	"time"

	"vboard/internal/input"
	"vboard/internal/keys"
	"vboard/internal/sched"
	"vboard/internal/sink"
)

// Default timings.
const (
	DefaultInitialDelay = 420 * time.Millisecond
	DefaultInterval     = 70 * time.Millisecond
)

// Options configures repeat timing.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
}

// DefaultOptions returns the default repeat timings.
func DefaultOptions() Options {
	return Options{
		InitialDelay: DefaultInitialDelay,
		Interval:     DefaultInterval,
	}
}

type record struct {
	key   keys.Key
	delay *sched.Timer
	tick  *sched.Timer
}

func (r *record) cancel() {
	r.delay.Cancel()
	r.tick.Cancel()
}

// Scheduler runs one repeat per contact. It must be used on the clock's
// thread.
type Scheduler struct {
	clock   sched.Scheduler
	sink    sink.EventSink
	opts    Options
	logger  *slog.Logger
	onError func(error)

	records map[input.ContactID]*record
}

// New returns a Scheduler tapping through s. Tap failures inside timer
// callbacks are passed to onError, which may be nil.
func New(clock sched.Scheduler, s sink.EventSink, opts Options, logger *slog.Logger, onError func(error)) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Scheduler{
		clock:   clock,
		sink:    s,
		opts:    opts,
		logger:  logger,
		onError: onError,
		records: make(map[input.ContactID]*record),
	}
}

// Start begins repeating key for id, replacing any repeat id already had.
// The first repeat tap comes after the initial delay; the caller is
// responsible for the tap at press time.
func (s *Scheduler) Start(id input.ContactID, key keys.Key) {
	s.Cancel(id)

	r := &record{key: key}
	s.records[id] = r
	r.delay = s.clock.AfterFunc(s.opts.InitialDelay, func() {
		if s.records[id] != r {
			return
		}
		r.tick = s.clock.Every(s.opts.Interval, func() {
			if s.records[id] != r {
				return
			}
			if err := s.sink.Tap(r.key); err != nil {
				s.report(err)
			}
		})
	})
}

// Cancel stops the repeat of id. Unknown ids are ignored.
func (s *Scheduler) Cancel(id input.ContactID) {
	r, ok := s.records[id]
	if !ok {
		return
	}
	r.cancel()
	delete(s.records, id)
}

// CancelOthers stops every repeat except the one owned by id.
func (s *Scheduler) CancelOthers(id input.ContactID) {
	for other := range s.records {
		if other != id {
			s.Cancel(other)
		}
	}
}

// CancelAll stops every repeat.
func (s *Scheduler) CancelAll() {
	for id := range s.records {
		s.Cancel(id)
	}
}

// Active reports whether id has a repeat record.
func (s *Scheduler) Active(id input.ContactID) bool {
	_, ok := s.records[id]
	return ok
}

// Repeating reports whether id is past its initial delay.
func (s *Scheduler) Repeating(id input.ContactID) bool {
	r, ok := s.records[id]
	return ok && r.tick.Live()
}

func (s *Scheduler) report(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	s.logger.Warn("repeat tap failed", "error", err)
}
