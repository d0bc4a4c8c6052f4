// Package shortcut detects a quick double tap of Shift and emits a
// configured key combination in its place.
package shortcut

import (
	"errors"
	"log/slog"
	"time"

	"vboard/internal/keys"
	"vboard/internal/sink"
)

// DefaultTimeout is the longest gap between two Shift releases that still
// counts as a double tap.
const DefaultTimeout = 380 * time.Millisecond

// Options configures the detector.
type Options struct {
	Enabled bool
	Timeout time.Duration
	Combo   keys.Shortcut
}

// DefaultOptions returns the detector defaults: enabled, 380ms, LEFTSHIFT+SPACE.
func DefaultOptions() Options {
	return Options{
		Enabled: true,
		Timeout: DefaultTimeout,
		Combo:   append(keys.Shortcut(nil), keys.DefaultShortcut...),
	}
}

// DoubleTap is the double-tap detector. It is driven from the modifier
// registry's Shift release hook and must be used on the engine's thread.
type DoubleTap struct {
	opts   Options
	sink   sink.EventSink
	logger *slog.Logger

	// release force-releases one modifier in the registry.
	release func(keys.Key) error

	lastTap time.Time
}

// New returns a detector emitting through s. release is called for both
// Shift keys before the combination is emitted.
func New(s sink.EventSink, release func(keys.Key) error, opts Options, logger *slog.Logger) *DoubleTap {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if len(opts.Combo) == 0 {
		opts.Combo = append(keys.Shortcut(nil), keys.DefaultShortcut...)
	}
	return &DoubleTap{
		opts:    opts,
		sink:    s,
		logger:  logger,
		release: release,
	}
}

// Options returns the detector's effective options.
func (d *DoubleTap) Options() Options {
	return d.opts
}

// OnRelease records a Shift release at now. When it follows the previous one
// within the timeout, both Shifts are force-released, the combination is
// emitted, and the detector starts over.
func (d *DoubleTap) OnRelease(now time.Time) error {
	if !d.opts.Enabled {
		d.lastTap = time.Time{}
		return nil
	}

	if !d.lastTap.IsZero() && now.Sub(d.lastTap) <= d.opts.Timeout {
		d.lastTap = time.Time{}
		var errs []error
		if d.release != nil {
			for _, s := range keys.Shifts {
				errs = append(errs, d.release(s))
			}
		}
		errs = append(errs, Emit(d.sink, d.opts.Combo))
		d.logger.Info("double shift shortcut", "combo", d.opts.Combo.String())
		return errors.Join(errs...)
	}

	d.lastTap = now
	return nil
}

// Reset forgets a pending first tap.
func (d *DoubleTap) Reset() {
	d.lastTap = time.Time{}
}

// Pending reports whether a first tap is waiting for its second.
func (d *DoubleTap) Pending() bool {
	return !d.lastTap.IsZero()
}

// Emit sends combo as one unit: modifier members are pressed in order, the
// other members are tapped (or, with none, each modifier is tapped), then the
// modifiers are released in reverse order.
func Emit(s sink.EventSink, combo keys.Shortcut) error {
	mods, others := combo.Split()

	var errs []error
	for _, m := range mods {
		errs = append(errs, s.SetState(m, true))
	}
	taps := others
	if len(taps) == 0 {
		taps = mods
	}
	for _, k := range taps {
		errs = append(errs, s.Tap(k))
	}
	for i := len(mods) - 1; i >= 0; i-- {
		errs = append(errs, s.SetState(mods[i], false))
	}
	return errors.Join(errs...)
}
