// Package sink injects synthetic key events into the host input subsystem.
//
// The keyboard core talks to an EventSink only. Injector implements it on top
// of a raw Device (the Linux uinput device, or a Recorder in tests and dry
// runs) and keeps the down-set that makes SetState idempotent.
package sink

import (
	"errors"
	"fmt"
	"sort"

	"vboard/internal/keys"
)

// Key event values written to a Device.
const (
	ValueRelease int32 = 0
	ValuePress   int32 = 1
)

var (
	// ErrUnavailable marks a failure of the injection channel itself.
	ErrUnavailable = errors.New("sink: injection channel unavailable")

	// ErrClosed is returned by a device used after Close.
	ErrClosed = errors.New("sink: device closed")
)

// EventSink accepts physical key state changes from the keyboard core.
type EventSink interface {
	// SetState presses or releases key. It is a no-op when the key is
	// already in the requested state.
	SetState(key keys.Key, pressed bool) error

	// Tap presses and releases key regardless of its current state,
	// without touching the down-set.
	Tap(key keys.Key) error
}

// Device writes raw key events.
type Device interface {
	// Emit writes one key event with the given value.
	Emit(key keys.Key, value int32) error

	// Sync flushes the events written so far as one report.
	Sync() error

	Close() error
}

// Injector is an EventSink over a Device. It is not safe for concurrent use;
// the keyboard core drives it from its single loop.
type Injector struct {
	dev  Device
	down map[keys.Key]struct{}
}

// NewInjector returns an Injector writing to dev.
func NewInjector(dev Device) *Injector {
	return &Injector{
		dev:  dev,
		down: make(map[keys.Key]struct{}),
	}
}

// SetState implements EventSink.
func (i *Injector) SetState(key keys.Key, pressed bool) error {
	_, isDown := i.down[key]
	switch {
	case pressed && !isDown:
		if err := i.emit(key, ValuePress); err != nil {
			return fmt.Errorf("press %s: %w", key, err)
		}
		i.down[key] = struct{}{}
	case !pressed && isDown:
		if err := i.emit(key, ValueRelease); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		delete(i.down, key)
	}
	return nil
}

// Tap implements EventSink.
func (i *Injector) Tap(key keys.Key) error {
	if err := i.emit(key, ValuePress); err != nil {
		return fmt.Errorf("tap %s: %w", key, err)
	}
	if err := i.emit(key, ValueRelease); err != nil {
		return fmt.Errorf("tap %s: %w", key, err)
	}
	return nil
}

func (i *Injector) emit(key keys.Key, value int32) error {
	if err := i.dev.Emit(key, value); err != nil {
		return err
	}
	return i.dev.Sync()
}

// IsDown reports whether key is in the down-set.
func (i *Injector) IsDown(key keys.Key) bool {
	_, ok := i.down[key]
	return ok
}

// Down returns the down-set sorted by key code.
func (i *Injector) Down() []keys.Key {
	out := make([]keys.Key, 0, len(i.down))
	for k := range i.down {
		out = append(out, k)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// ReleaseAll releases every key in the down-set.
func (i *Injector) ReleaseAll() error {
	var errs []error
	for _, k := range i.Down() {
		errs = append(errs, i.SetState(k, false))
	}
	return errors.Join(errs...)
}

// Close releases held keys and closes the device.
func (i *Injector) Close() error {
	return errors.Join(i.ReleaseAll(), i.dev.Close())
}
