// Package busapi exposes the keyboard core on the D-Bus session bus.
//
// The service receives already hit-tested input (a contact id, a key name,
// a position and a timestamp) and forwards it to the engine on the engine's
// own loop. Visual feedback leaves the daemon as signals on the same object.
package busapi

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// D-Bus names
const (
	Interface         = "org.vboard.Keyboard"
	DefaultBusName    = "org.vboard.Keyboard"
	DefaultObjectPath = dbus.ObjectPath("/org/vboard/Keyboard")

	ErrorInvalidArgs = Interface + ".Error.InvalidArgs"
	ErrorEngine      = Interface + ".Error.Engine"
)

// Signal member names
const (
	SignalKeyVisual   = "KeyVisualChanged"
	SignalCursorMode  = "SpaceCursorModeChanged"
	SignalShiftActive = "ShiftActiveChanged"
	SignalCapsLock    = "CapsLockChanged"
)

var introspection = introspect.Node{
	Interfaces: []introspect.Interface{
		introspect.IntrospectData,
		{
			Name: Interface,
			Methods: []introspect.Method{
				{
					Name: "Begin",
					Args: []introspect.Arg{
						{Name: "contact", Type: "s", Direction: "in"},
						{Name: "key", Type: "s", Direction: "in"},
						{Name: "x", Type: "d", Direction: "in"},
						{Name: "y", Type: "d", Direction: "in"},
						{Name: "time_ms", Type: "x", Direction: "in"},
					},
				},
				{
					Name: "Update",
					Args: []introspect.Arg{
						{Name: "contact", Type: "s", Direction: "in"},
						{Name: "x", Type: "d", Direction: "in"},
						{Name: "y", Type: "d", Direction: "in"},
						{Name: "time_ms", Type: "x", Direction: "in"},
					},
				},
				{
					Name: "End",
					Args: []introspect.Arg{
						{Name: "contact", Type: "s", Direction: "in"},
						{Name: "time_ms", Type: "x", Direction: "in"},
					},
				},
				{Name: "Reset"},
				{
					Name: "State",
					Args: []introspect.Arg{
						{Name: "state", Type: "(a{ss}asasbb)", Direction: "out"},
					},
				},
			},
			Signals: []introspect.Signal{
				{
					Name: SignalKeyVisual,
					Args: []introspect.Arg{
						{Name: "key", Type: "s"},
						{Name: "pressed", Type: "b"},
					},
				},
				{Name: SignalCursorMode, Args: []introspect.Arg{{Name: "active", Type: "b"}}},
				{Name: SignalShiftActive, Args: []introspect.Arg{{Name: "active", Type: "b"}}},
				{Name: SignalCapsLock, Args: []introspect.Arg{{Name: "on", Type: "b"}}},
			},
		},
	},
}

// Introspection returns the XML description of the exported object.
func Introspection() string {
	return string(introspect.NewIntrospectable(&introspection))
}

// StateReply is the result of the State method.
type StateReply struct {
	// Contacts maps each active contact to its key name.
	Contacts map[string]string
	// Held lists modifiers physically held by a contact.
	Held []string
	// Latched lists one-shot modifiers waiting for the next key.
	Latched     []string
	ShiftActive bool
	CapsLock    bool
}
