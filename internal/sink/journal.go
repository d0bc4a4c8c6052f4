package sink

import (
	"fmt"

	"vboard/internal/keys"
)

// OpKind is the kind of a journaled sink call.
type OpKind int

const (
	OpPress OpKind = iota
	OpRelease
	OpTap
)

func (k OpKind) String() string {
	switch k {
	case OpPress:
		return "press"
	case OpRelease:
		return "release"
	default:
		return "tap"
	}
}

// Op is one effective sink call. Idempotent SetState calls that changed
// nothing are not journaled.
type Op struct {
	Kind OpKind
	Key  keys.Key
}

func (o Op) String() string {
	return fmt.Sprintf("%s %s", o.Kind, o.Key)
}

// Journal is an EventSink that records the press, release and tap
// operations it performs on an Injector backed by a Recorder.
type Journal struct {
	*Injector
	Device *Recorder
	Ops    []Op
}

// NewJournal returns a Journal with a fresh Recorder.
func NewJournal() *Journal {
	rec := NewRecorder(nil)
	return &Journal{Injector: NewInjector(rec), Device: rec}
}

// SetState implements EventSink.
func (j *Journal) SetState(key keys.Key, pressed bool) error {
	before := j.IsDown(key)
	if err := j.Injector.SetState(key, pressed); err != nil {
		return err
	}
	if before != pressed {
		kind := OpRelease
		if pressed {
			kind = OpPress
		}
		j.Ops = append(j.Ops, Op{Kind: kind, Key: key})
	}
	return nil
}

// Tap implements EventSink.
func (j *Journal) Tap(key keys.Key) error {
	if err := j.Injector.Tap(key); err != nil {
		return err
	}
	j.Ops = append(j.Ops, Op{Kind: OpTap, Key: key})
	return nil
}

// Taps counts tap operations on key.
func (j *Journal) Taps(key keys.Key) int {
	return j.count(OpTap, key)
}

// Presses counts press operations on key.
func (j *Journal) Presses(key keys.Key) int {
	return j.count(OpPress, key)
}

// Releases counts release operations on key.
func (j *Journal) Releases(key keys.Key) int {
	return j.count(OpRelease, key)
}

// TotalTaps counts all tap operations.
func (j *Journal) TotalTaps() int {
	n := 0
	for _, op := range j.Ops {
		if op.Kind == OpTap {
			n++
		}
	}
	return n
}

func (j *Journal) count(kind OpKind, key keys.Key) int {
	n := 0
	for _, op := range j.Ops {
		if op.Kind == kind && op.Key == key {
			n++
		}
	}
	return n
}

// Clear forgets journaled operations and raw events.
func (j *Journal) Clear() {
	j.Ops = nil
	j.Device.Reset()
}
