// Package feedback carries fire-and-forget visual notifications from the
// keyboard core to whatever renders the keys.
package feedback

import "vboard/internal/keys"

// Observer receives visual state changes. Implementations must not call back
// into the core.
type Observer interface {
	KeyVisualChanged(key keys.Key, pressed bool)
	SpaceCursorModeChanged(active bool)
	ShiftActiveChanged(active bool)
	CapsLockChanged(on bool)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) KeyVisualChanged(keys.Key, bool) {}
func (Nop) SpaceCursorModeChanged(bool)     {}
func (Nop) ShiftActiveChanged(bool)         {}
func (Nop) CapsLockChanged(bool)            {}

// Multi fans notifications out to several observers in order.
type Multi []Observer

func (m Multi) KeyVisualChanged(key keys.Key, pressed bool) {
	for _, o := range m {
		o.KeyVisualChanged(key, pressed)
	}
}

func (m Multi) SpaceCursorModeChanged(active bool) {
	for _, o := range m {
		o.SpaceCursorModeChanged(active)
	}
}

func (m Multi) ShiftActiveChanged(active bool) {
	for _, o := range m {
		o.ShiftActiveChanged(active)
	}
}

func (m Multi) CapsLockChanged(on bool) {
	for _, o := range m {
		o.CapsLockChanged(on)
	}
}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}
