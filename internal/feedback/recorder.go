package feedback

import "vboard/internal/keys"

// Kind names a notification.
type Kind int

const (
	KindKeyVisual Kind = iota
	KindCursorMode
	KindShiftActive
	KindCapsLock
)

// Note is one recorded notification.
type Note struct {
	Kind   Kind
	Key    keys.Key
	Active bool
}

// Recorder keeps every notification in order.
type Recorder struct {
	Notes []Note
}

func (r *Recorder) KeyVisualChanged(key keys.Key, pressed bool) {
	r.Notes = append(r.Notes, Note{Kind: KindKeyVisual, Key: key, Active: pressed})
}

func (r *Recorder) SpaceCursorModeChanged(active bool) {
	r.Notes = append(r.Notes, Note{Kind: KindCursorMode, Active: active})
}

func (r *Recorder) ShiftActiveChanged(active bool) {
	r.Notes = append(r.Notes, Note{Kind: KindShiftActive, Active: active})
}

func (r *Recorder) CapsLockChanged(on bool) {
	r.Notes = append(r.Notes, Note{Kind: KindCapsLock, Active: on})
}

// Count returns how many notes of kind were recorded with the given value.
// For KindKeyVisual only notes for key are counted.
func (r *Recorder) Count(kind Kind, key keys.Key, active bool) int {
	n := 0
	for _, note := range r.Notes {
		if note.Kind != kind || note.Active != active {
			continue
		}
		if kind == KindKeyVisual && note.Key != key {
			continue
		}
		n++
	}
	return n
}

// KeyPressed returns the last visual state reported for key.
func (r *Recorder) KeyPressed(key keys.Key) (pressed, seen bool) {
	for i := len(r.Notes) - 1; i >= 0; i-- {
		note := r.Notes[i]
		if note.Kind == KindKeyVisual && note.Key == key {
			return note.Active, true
		}
	}
	return false, false
}

// Last returns the last note of kind.
func (r *Recorder) Last(kind Kind) (Note, bool) {
	for i := len(r.Notes) - 1; i >= 0; i-- {
		if r.Notes[i].Kind == kind {
			return r.Notes[i], true
		}
	}
	return Note{}, false
}

// Reset drops recorded notes.
func (r *Recorder) Reset() {
	r.Notes = nil
}
