package busapi

import (
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"

	"vboard/internal/keys"
)

// Emitter sends a signal. *dbus.Conn implements it.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// Signals is a feedback.Observer that forwards every notification as a
// D-Bus signal. Emission failures are logged and otherwise ignored.
type Signals struct {
	emitter Emitter
	path    dbus.ObjectPath
	logger  *slog.Logger
}

// NewSignals creates an observer emitting on path.
func NewSignals(emitter Emitter, path dbus.ObjectPath, logger *slog.Logger) *Signals {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signals{emitter: emitter, path: path, logger: logger}
}

func (s *Signals) KeyVisualChanged(key keys.Key, pressed bool) {
	s.emit(SignalKeyVisual, key.String(), pressed)
}

func (s *Signals) SpaceCursorModeChanged(active bool) {
	s.emit(SignalCursorMode, active)
}

func (s *Signals) ShiftActiveChanged(active bool) {
	s.emit(SignalShiftActive, active)
}

func (s *Signals) CapsLockChanged(on bool) {
	s.emit(SignalCapsLock, on)
}

func (s *Signals) emit(member string, values ...interface{}) {
	if err := s.emitter.Emit(s.path, Interface+"."+member, values...); err != nil {
		s.logger.Warn("emit signal failed", "signal", member, "error", err)
	}
}

// Signal is a decoded feedback signal.
type Signal struct {
	Name string
	// Key is set for KeyVisualChanged only.
	Key    string
	Active bool
}

// ParseSignal decodes a feedback signal. It returns false for signals of
// other interfaces and for malformed bodies.
func ParseSignal(sig *dbus.Signal) (Signal, bool) {
	if sig == nil || !strings.HasPrefix(sig.Name, Interface+".") {
		return Signal{}, false
	}
	name := strings.TrimPrefix(sig.Name, Interface+".")

	switch name {
	case SignalKeyVisual:
		if len(sig.Body) != 2 {
			return Signal{}, false
		}
		key, ok1 := sig.Body[0].(string)
		pressed, ok2 := sig.Body[1].(bool)
		if !ok1 || !ok2 {
			return Signal{}, false
		}
		return Signal{Name: name, Key: key, Active: pressed}, true
	case SignalCursorMode, SignalShiftActive, SignalCapsLock:
		if len(sig.Body) != 1 {
			return Signal{}, false
		}
		active, ok := sig.Body[0].(bool)
		if !ok {
			return Signal{}, false
		}
		return Signal{Name: name, Active: active}, true
	default:
		return Signal{}, false
	}
}
