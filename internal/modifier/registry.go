// Package modifier holds the single authoritative table of modifier key state.
//
// A modifier is held while at least one contact presses it, latched when a
// clean tap left it sticky, and combo-used when another key began while it was
// held. It is active, and physically down in the sink, iff held or latched.
// Left and right instances of one modifier kind are exclusive: pressing one
// force-releases the other.
package modifier

import (
	"errors"
	"log/slog"

	"vboard/internal/feedback"
	"vboard/internal/keys"
	"vboard/internal/sink"
)

// State is the state of one modifier.
type State struct {
	Held      bool
	Latched   bool
	ComboUsed bool
}

// Active reports whether the modifier is logically down.
func (s State) Active() bool {
	return s.Held || s.Latched
}

// Registry tracks every modifier in keys.Modifiers. It is owned by one
// contact tracker and is not safe for concurrent use.
type Registry struct {
	sink   sink.EventSink
	obs    feedback.Observer
	logger *slog.Logger

	states      map[keys.Key]*State
	shiftActive bool

	onShiftRelease func() error
}

// NewRegistry returns a registry with every modifier inactive.
func NewRegistry(s sink.EventSink, obs feedback.Observer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		sink:   s,
		obs:    feedback.OrNop(obs),
		logger: logger,
		states: make(map[keys.Key]*State, len(keys.Modifiers)),
	}
	for _, m := range keys.Modifiers {
		r.states[m] = &State{}
	}
	return r
}

// OnShiftRelease installs the hook called after every Shift release.
func (r *Registry) OnShiftRelease(fn func() error) {
	r.onShiftRelease = fn
}

// State returns a snapshot of modifier m. Non-modifiers report the zero State.
func (r *Registry) State(m keys.Key) State {
	if st, ok := r.states[m]; ok {
		return *st
	}
	return State{}
}

// IsActive reports whether m is held or latched.
func (r *Registry) IsActive(m keys.Key) bool {
	return r.State(m).Active()
}

// IsShiftActive reports whether either Shift is held or latched.
func (r *Registry) IsShiftActive() bool {
	for _, s := range keys.Shifts {
		if r.states[s].Active() {
			return true
		}
	}
	return false
}

// Press marks m held. An active opposite instance is force-released first.
func (r *Registry) Press(m keys.Key) error {
	st, ok := r.states[m]
	if !ok {
		return nil
	}

	var errs []error
	if opp, ok := keys.Opposite(m); ok && r.states[opp].Active() {
		errs = append(errs, r.forceRelease(opp))
	}

	st.Held = true
	st.ComboUsed = false
	errs = append(errs, r.sink.SetState(m, true))
	r.obs.KeyVisualChanged(m, true)
	r.syncShift()

	r.logger.Debug("modifier pressed", "key", m.String())
	return errors.Join(errs...)
}

// Release ends the hold on m. A modifier used in a combination goes back to
// inactive unless latched; a clean tap toggles the latch.
func (r *Registry) Release(m keys.Key) error {
	st, ok := r.states[m]
	if !ok {
		return nil
	}

	var errs []error
	st.Held = false
	switch {
	case st.ComboUsed:
		st.ComboUsed = false
		if !st.Latched {
			errs = append(errs, r.sink.SetState(m, false))
			r.obs.KeyVisualChanged(m, false)
		}
	case st.Latched:
		st.Latched = false
		errs = append(errs, r.sink.SetState(m, false))
		r.obs.KeyVisualChanged(m, false)
	default:
		st.Latched = true
		r.obs.KeyVisualChanged(m, true)
	}
	r.syncShift()

	r.logger.Debug("modifier released", "key", m.String(), "latched", st.Latched)

	if keys.IsShift(m) && r.onShiftRelease != nil {
		errs = append(errs, r.onShiftRelease())
	}
	return errors.Join(errs...)
}

// NotifyOtherKeyPressed marks every held modifier as used in a combination.
func (r *Registry) NotifyOtherKeyPressed() {
	for _, st := range r.states {
		if st.Held {
			st.ComboUsed = true
		}
	}
}

// NotifyModifierPressed marks every held modifier other than m as used in a
// combination. Overlapping presses of m itself still count as one tap.
func (r *Registry) NotifyModifierPressed(m keys.Key) {
	for k, st := range r.states {
		if st.Held && k != m {
			st.ComboUsed = true
		}
	}
}

// ReleaseNonHeldLatches unlatches and releases every latched modifier that
// no contact is holding. This makes a latched modifier one-shot.
func (r *Registry) ReleaseNonHeldLatches() error {
	var errs []error
	for _, m := range keys.Modifiers {
		st := r.states[m]
		if st.Latched && !st.Held {
			st.Latched = false
			errs = append(errs, r.sink.SetState(m, false))
			r.obs.KeyVisualChanged(m, false)
		}
	}
	r.syncShift()
	return errors.Join(errs...)
}

// ForceRelease clears every flag of m and releases it physically.
func (r *Registry) ForceRelease(m keys.Key) error {
	if _, ok := r.states[m]; !ok {
		return nil
	}
	err := r.forceRelease(m)
	r.syncShift()
	return err
}

// ReleaseAll force-releases every modifier.
func (r *Registry) ReleaseAll() error {
	var errs []error
	for _, m := range keys.Modifiers {
		if r.states[m].Active() {
			errs = append(errs, r.forceRelease(m))
		}
	}
	r.syncShift()
	return errors.Join(errs...)
}

func (r *Registry) forceRelease(m keys.Key) error {
	*r.states[m] = State{}
	err := r.sink.SetState(m, false)
	r.obs.KeyVisualChanged(m, false)
	return err
}

func (r *Registry) syncShift() {
	active := r.IsShiftActive()
	if active != r.shiftActive {
		r.shiftActive = active
		r.obs.ShiftActiveChanged(active)
	}
}
