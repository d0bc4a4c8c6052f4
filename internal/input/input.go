// Package input defines the resolved input events the keyboard core consumes.
//
// The external input layer (touch screen, mouse, D-Bus client) hit-tests raw
// coordinates to a key before anything reaches this package; an Event carries
// only the contact identity, the resolved key, the phase and the position.
package input

import (
	"fmt"
	"strings"
	"time"

	"vboard/internal/keys"
)

// ContactID identifies one independent point of input for the lifetime of a
// press. Any comparable string works; the helpers below give the conventional
// forms for the mouse and touch sequences.
type ContactID string

// MouseContact is the contact used for the mouse pointer.
const MouseContact ContactID = "mouse"

// TouchContact returns the contact for a touch sequence number.
func TouchContact(seq uint64) ContactID {
	return ContactID(fmt.Sprintf("touch:%d", seq))
}

// Phase is the stage of a contact's press.
type Phase int

const (
	PhaseBegin Phase = iota
	PhaseUpdate
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseBegin:
		return "begin"
	case PhaseUpdate:
		return "update"
	case PhaseEnd:
		return "end"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase parses "begin", "update" or "end" (case-insensitive). The GDK
// style names "press", "motion" and "release" are accepted as well.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(s) {
	case "begin", "press", "down":
		return PhaseBegin, nil
	case "update", "motion", "move":
		return PhaseUpdate, nil
	case "end", "release", "up":
		return PhaseEnd, nil
	default:
		return 0, fmt.Errorf("unknown input phase: %s", s)
	}
}

// Event is one resolved input event.
type Event struct {
	Contact ContactID
	Phase   Phase
	// Key is only meaningful for PhaseBegin.
	Key keys.Key
	X   float64
	Y   float64
	// Time is the event timestamp on the input source's monotonic clock.
	Time time.Duration
}

// Millis converts a millisecond event timestamp, as delivered by GDK and the
// D-Bus API, to an event time.
func Millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
