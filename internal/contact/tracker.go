// Package contact maps independent input contacts onto one keyboard.
//
// Each contact (the mouse pointer or one touch sequence) presses at most one
// key at a time. The Tracker keeps a record per active contact and a
// reference count per key, dispatches by key class to the modifier registry,
// the repeat scheduler and space cursor mode, and sends every physical change
// through one EventSink. All methods must be called on the clock's thread.
package contact

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"vboard/internal/cursor"
	"vboard/internal/feedback"
	"vboard/internal/input"
	"vboard/internal/keys"
	"vboard/internal/modifier"
	"vboard/internal/repeat"
	"vboard/internal/sched"
	"vboard/internal/shortcut"
	"vboard/internal/sink"
)

// DefaultCapsFlash is how long the CapsLock key stays painted after a tap.
const DefaultCapsFlash = 110 * time.Millisecond

// Options configures a Tracker.
type Options struct {
	Repeat    repeat.Options
	Shortcut  shortcut.Options
	Cursor    cursor.Options
	CapsFlash time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Repeat:    repeat.DefaultOptions(),
		Shortcut:  shortcut.DefaultOptions(),
		Cursor:    cursor.DefaultOptions(),
		CapsFlash: DefaultCapsFlash,
	}
}

type record struct {
	key       keys.Key
	pressTime time.Duration
}

// Tracker is the keyboard engine. It owns the modifier registry, the repeat
// scheduler, the double tap detector and space cursor mode.
type Tracker struct {
	clock  sched.Scheduler
	sink   sink.EventSink
	obs    feedback.Observer
	opts   Options
	logger *slog.Logger

	reg    *modifier.Registry
	repeat *repeat.Scheduler
	cursor *cursor.Mode
	double *shortcut.DoubleTap

	contacts map[input.ContactID]*record
	refs     map[keys.Key]int

	capsLock  bool
	capsFlash *sched.Timer

	onError func(error)
}

// New builds a Tracker. obs and logger may be nil.
func New(clock sched.Scheduler, s sink.EventSink, obs feedback.Observer, opts Options, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CapsFlash <= 0 {
		opts.CapsFlash = DefaultCapsFlash
	}
	obs = feedback.OrNop(obs)

	t := &Tracker{
		clock:    clock,
		sink:     s,
		obs:      obs,
		opts:     opts,
		logger:   logger,
		contacts: make(map[input.ContactID]*record),
		refs:     make(map[keys.Key]int),
	}
	t.reg = modifier.NewRegistry(s, obs, logger.With("component", "modifier"))
	t.repeat = repeat.New(clock, s, opts.Repeat, logger.With("component", "repeat"), t.report)
	t.cursor = cursor.New(clock, s, obs, opts.Cursor, logger.With("component", "cursor"))
	t.double = shortcut.New(s, t.reg.ForceRelease, opts.Shortcut, logger.With("component", "shortcut"))
	t.reg.OnShiftRelease(func() error {
		return t.double.OnRelease(t.clock.Now())
	})
	return t
}

// SetErrorHandler installs the handler for sink failures raised inside timer
// callbacks. The default logs them.
func (t *Tracker) SetErrorHandler(fn func(error)) {
	t.onError = fn
}

func (t *Tracker) report(err error) {
	if err == nil {
		return
	}
	if t.onError != nil {
		t.onError(err)
		return
	}
	t.logger.Warn("key injection failed", "error", err)
}

// Handle dispatches one resolved input event.
func (t *Tracker) Handle(ev input.Event) error {
	switch ev.Phase {
	case input.PhaseBegin:
		return t.Begin(ev.Contact, ev.Key, ev.Time)
	case input.PhaseUpdate:
		return t.Update(ev.Contact, ev.X, ev.Y, ev.Time)
	case input.PhaseEnd:
		return t.End(ev.Contact, ev.Time)
	default:
		return nil
	}
}

// Begin starts a press of key by id at event time at. A contact that is
// already active is ended first.
func (t *Tracker) Begin(id input.ContactID, key keys.Key, at time.Duration) error {
	var errs []error
	if _, ok := t.contacts[id]; ok {
		t.logger.Debug("contact began twice, ending previous press", "contact", string(id))
		errs = append(errs, t.End(id, at))
	}

	t.contacts[id] = &record{key: key, pressTime: at}
	t.refs[key]++
	t.logger.Debug("contact begin", "contact", string(id), "key", key.String(), "refs", t.refs[key])

	switch keys.ClassOf(key) {
	case keys.ClassModifier:
		t.reg.NotifyModifierPressed(key)
		if !t.reg.State(key).Held {
			errs = append(errs, t.reg.Press(key))
		}

	case keys.ClassSpace:
		t.reg.NotifyOtherKeyPressed()
		t.cursor.Begin(id)
		if t.refs[key] == 1 {
			t.obs.KeyVisualChanged(key, true)
		}

	case keys.ClassCapsLock:
		t.capsLock = !t.capsLock
		errs = append(errs, t.sink.Tap(key))
		t.obs.CapsLockChanged(t.capsLock)
		t.flash(key)

	default:
		t.reg.NotifyOtherKeyPressed()
		t.cancelOtherRepeats(id)
		errs = append(errs, t.sink.Tap(key))
		t.repeat.Start(id, key)
		if t.refs[key] == 1 {
			t.obs.KeyVisualChanged(key, true)
		}
	}
	return errors.Join(errs...)
}

// Update feeds a motion sample of id. Only space contacts use motion.
func (t *Tracker) Update(id input.ContactID, x, y float64, at time.Duration) error {
	rec, ok := t.contacts[id]
	if !ok || keys.ClassOf(rec.key) != keys.ClassSpace {
		return nil
	}
	return t.cursor.Motion(id, x, y, at)
}

// End finishes the press of id. Unknown ids are ignored.
func (t *Tracker) End(id input.ContactID, at time.Duration) error {
	rec, ok := t.contacts[id]
	if !ok {
		return nil
	}
	delete(t.contacts, id)
	key := rec.key
	refs := t.release(key)
	t.logger.Debug("contact end", "contact", string(id), "key", key.String(),
		"refs", refs, "held", at-rec.pressTime)

	var errs []error
	switch keys.ClassOf(key) {
	case keys.ClassModifier:
		if refs == 0 && t.reg.State(key).Held {
			errs = append(errs, t.reg.Release(key))
		}

	case keys.ClassSpace:
		errs = append(errs, t.cursor.End(id))
		errs = append(errs, t.reg.ReleaseNonHeldLatches())
		if refs == 0 {
			t.obs.KeyVisualChanged(key, false)
		}

	case keys.ClassCapsLock:
		// Toggled and tapped at begin.

	default:
		t.repeat.Cancel(id)
		errs = append(errs, t.reg.ReleaseNonHeldLatches())
		if refs == 0 {
			t.obs.KeyVisualChanged(key, false)
		}
	}
	return errors.Join(errs...)
}

// Reset drops every active contact without emitting taps, cancels every
// timer and pending Shift tap, and force-releases every modifier. The
// CapsLock indicator is kept.
func (t *Tracker) Reset() error {
	for _, id := range t.Contacts() {
		rec := t.contacts[id]
		switch keys.ClassOf(rec.key) {
		case keys.ClassSpace:
			t.cursor.Cancel(id)
		case keys.ClassOrdinary:
			t.repeat.Cancel(id)
		}
		delete(t.contacts, id)
		if t.release(rec.key) == 0 && !keys.IsModifier(rec.key) {
			t.obs.KeyVisualChanged(rec.key, false)
		}
	}
	t.repeat.CancelAll()
	t.double.Reset()
	if t.capsFlash.Live() {
		t.capsFlash.Cancel()
		t.obs.KeyVisualChanged(keys.KeyCapsLock, false)
	}
	return t.reg.ReleaseAll()
}

// Close resets the engine. The sink is left to its owner.
func (t *Tracker) Close() error {
	return t.Reset()
}

func (t *Tracker) release(key keys.Key) int {
	n := t.refs[key] - 1
	if n <= 0 {
		delete(t.refs, key)
		return 0
	}
	t.refs[key] = n
	return n
}

func (t *Tracker) cancelOtherRepeats(id input.ContactID) {
	for other, rec := range t.contacts {
		if other != id && keys.ClassOf(rec.key) == keys.ClassOrdinary {
			t.repeat.Cancel(other)
		}
	}
}

func (t *Tracker) flash(key keys.Key) {
	t.capsFlash.Cancel()
	t.obs.KeyVisualChanged(key, true)
	t.capsFlash = t.clock.AfterFunc(t.opts.CapsFlash, func() {
		t.obs.KeyVisualChanged(key, false)
	})
}

// Registry returns the modifier registry.
func (t *Tracker) Registry() *modifier.Registry {
	return t.reg
}

// RefCount returns how many contacts hold key.
func (t *Tracker) RefCount(key keys.Key) int {
	return t.refs[key]
}

// Active returns the key held by id.
func (t *Tracker) Active(id input.ContactID) (keys.Key, bool) {
	rec, ok := t.contacts[id]
	if !ok {
		return 0, false
	}
	return rec.key, true
}

// Contacts returns the active contact ids in sorted order.
func (t *Tracker) Contacts() []input.ContactID {
	out := make([]input.ContactID, 0, len(t.contacts))
	for id := range t.contacts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsShiftActive reports whether either Shift is held or latched.
func (t *Tracker) IsShiftActive() bool {
	return t.reg.IsShiftActive()
}

// CapsLock reports the CapsLock indicator state.
func (t *Tracker) CapsLock() bool {
	return t.capsLock
}

// InCursorMode reports whether id is a space contact in cursor mode.
func (t *Tracker) InCursorMode(id input.ContactID) bool {
	return t.cursor.InCursorMode(id)
}

// Repeating reports whether id has a live key repeat.
func (t *Tracker) Repeating(id input.ContactID) bool {
	return t.repeat.Active(id)
}

// Options returns the tracker's options.
func (t *Tracker) Options() Options {
	return t.opts
}

// Snapshot is a point-in-time view of the engine for status queries.
type Snapshot struct {
	Contacts    map[input.ContactID]keys.Key
	Modifiers   map[keys.Key]modifier.State
	ShiftActive bool
	CapsLock    bool
}

// Snapshot returns the current state. Only active modifiers are listed.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Contacts:    make(map[input.ContactID]keys.Key, len(t.contacts)),
		Modifiers:   make(map[keys.Key]modifier.State),
		ShiftActive: t.reg.IsShiftActive(),
		CapsLock:    t.capsLock,
	}
	for id, rec := range t.contacts {
		s.Contacts[id] = rec.key
	}
	for _, m := range keys.Modifiers {
		if st := t.reg.State(m); st.Active() {
			s.Modifiers[m] = st
		}
	}
	return s
}
