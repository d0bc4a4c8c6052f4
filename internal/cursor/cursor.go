// Package cursor turns a long-pressed, dragged space key into arrow key taps.
//
// A space contact starts in tracking. If it is still down after the long
// press delay it enters cursor mode, and from then on its motion accumulates
// into arrow taps whose step size shrinks as the drag gets faster. A contact
// that ends without entering cursor mode produces a single space tap.
package cursor

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"vboard/internal/feedback"
	"vboard/internal/input"
	"vboard/internal/keys"
	"vboard/internal/sched"
	"vboard/internal/sink"
)

// Default tuning.
const (
	DefaultLongPress    = 300 * time.Millisecond
	DefaultMinStep      = 8.0
	DefaultMaxStep      = 28.0
	DefaultSpeedDivisor = 120.0
	DefaultMaxReduction = 16.0
)

// minSampleGap bounds the speed computation for samples with equal times.
const minSampleGap = time.Millisecond

// Options tunes cursor mode. Step sizes are in pixels, SpeedDivisor in
// pixels per second per pixel of step reduction.
type Options struct {
	LongPress    time.Duration
	MinStep      float64
	MaxStep      float64
	SpeedDivisor float64
	MaxReduction float64
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{
		LongPress:    DefaultLongPress,
		MinStep:      DefaultMinStep,
		MaxStep:      DefaultMaxStep,
		SpeedDivisor: DefaultSpeedDivisor,
		MaxReduction: DefaultMaxReduction,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LongPress <= 0 {
		o.LongPress = d.LongPress
	}
	if o.MinStep <= 0 {
		o.MinStep = d.MinStep
	}
	if o.MaxStep <= 0 {
		o.MaxStep = d.MaxStep
	}
	if o.SpeedDivisor <= 0 {
		o.SpeedDivisor = d.SpeedDivisor
	}
	if o.MaxReduction < 0 {
		o.MaxReduction = d.MaxReduction
	}
	return o
}

// StepThreshold returns the drag distance per arrow tap at speed px/s.
func (o Options) StepThreshold(speed float64) float64 {
	return math.Max(o.MinStep, o.MaxStep-math.Min(speed/o.SpeedDivisor, o.MaxReduction))
}

type tracking struct {
	cursorMode bool
	longPress  *sched.Timer

	seeded       bool
	lastX, lastY float64
	lastT        time.Duration

	accumX, accumY float64
}

// Mode tracks space contacts. It must be used on the clock's thread.
type Mode struct {
	clock   sched.Scheduler
	sink    sink.EventSink
	obs     feedback.Observer
	opts    Options
	logger  *slog.Logger
	records map[input.ContactID]*tracking
}

// New returns a Mode tapping through s and reporting mode changes to obs.
func New(clock sched.Scheduler, s sink.EventSink, obs feedback.Observer, opts Options, logger *slog.Logger) *Mode {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mode{
		clock:   clock,
		sink:    s,
		obs:     feedback.OrNop(obs),
		opts:    opts.withDefaults(),
		logger:  logger,
		records: make(map[input.ContactID]*tracking),
	}
}

// Options returns the effective tuning.
func (m *Mode) Options() Options {
	return m.opts
}

// Begin starts tracking id and arms its long press timer. A previous record
// for id is dropped without emitting anything.
func (m *Mode) Begin(id input.ContactID) {
	m.Cancel(id)

	tr := &tracking{}
	m.records[id] = tr
	tr.longPress = m.clock.AfterFunc(m.opts.LongPress, func() {
		if m.records[id] != tr {
			return
		}
		tr.cursorMode = true
		m.logger.Debug("space cursor mode entered", "contact", string(id))
		m.obs.SpaceCursorModeChanged(true)
	})
}

// Motion feeds one position sample of id at event time t. Samples before
// cursor mode, and for untracked contacts, are ignored. The first sample in
// cursor mode only seeds the position.
func (m *Mode) Motion(id input.ContactID, x, y float64, t time.Duration) error {
	tr, ok := m.records[id]
	if !ok || !tr.cursorMode {
		return nil
	}
	if !tr.seeded {
		tr.seeded = true
		tr.lastX, tr.lastY, tr.lastT = x, y, t
		return nil
	}

	dx, dy := x-tr.lastX, y-tr.lastY
	dt := max(t-tr.lastT, minSampleGap)
	tr.lastX, tr.lastY, tr.lastT = x, y, t

	tr.accumX += dx
	tr.accumY += dy
	speed := math.Hypot(dx, dy) / dt.Seconds()
	return m.emit(tr, m.opts.StepThreshold(speed))
}

func (m *Mode) emit(tr *tracking, threshold float64) error {
	var (
		acc, other *float64
		pos, neg   keys.Key
	)
	if math.Abs(tr.accumX) >= math.Abs(tr.accumY) {
		acc, other, pos, neg = &tr.accumX, &tr.accumY, keys.KeyRight, keys.KeyLeft
	} else {
		acc, other, pos, neg = &tr.accumY, &tr.accumX, keys.KeyDown, keys.KeyUp
	}

	steps := math.Floor(math.Abs(*acc) / threshold)
	if steps <= 0 {
		return nil
	}
	key := pos
	if *acc < 0 {
		key = neg
	}

	var errs []error
	for i := 0; i < int(steps); i++ {
		errs = append(errs, m.sink.Tap(key))
	}
	*acc -= math.Copysign(steps*threshold, *acc)
	*other = 0
	return errors.Join(errs...)
}

// End finishes tracking id. A contact that never entered cursor mode taps
// space once, as does an id with no tracking record. Leaving cursor mode
// emits nothing but is reported to the observer.
func (m *Mode) End(id input.ContactID) error {
	tr, ok := m.records[id]
	if !ok {
		return m.sink.Tap(keys.KeySpace)
	}
	tr.longPress.Cancel()
	delete(m.records, id)

	if !tr.cursorMode {
		return m.sink.Tap(keys.KeySpace)
	}
	m.logger.Debug("space cursor mode left", "contact", string(id))
	m.obs.SpaceCursorModeChanged(false)
	return nil
}

// Cancel drops the record of id without emitting anything. Leaving cursor
// mode is still reported.
func (m *Mode) Cancel(id input.ContactID) {
	tr, ok := m.records[id]
	if !ok {
		return
	}
	tr.longPress.Cancel()
	delete(m.records, id)
	if tr.cursorMode {
		m.obs.SpaceCursorModeChanged(false)
	}
}

// Tracking reports whether id has a tracking record.
func (m *Mode) Tracking(id input.ContactID) bool {
	_, ok := m.records[id]
	return ok
}

// InCursorMode reports whether id is in cursor mode.
func (m *Mode) InCursorMode(id input.ContactID) bool {
	tr, ok := m.records[id]
	return ok && tr.cursorMode
}

// Accumulated returns the pending, not yet emitted, drag distance of id.
func (m *Mode) Accumulated(id input.ContactID) (x, y float64) {
	if tr, ok := m.records[id]; ok {
		return tr.accumX, tr.accumY
	}
	return 0, 0
}
