package sink

import (
	"log/slog"

	"vboard/internal/keys"
)

// Event is one raw event written to a Recorder.
type Event struct {
	Key   keys.Key
	Value int32
}

// Recorder is an in-memory Device. It backs dry runs, where it logs each
// event, and tests, where Fail can simulate a broken injection channel.
type Recorder struct {
	Events []Event
	Syncs  int

	// Fail, when set, is returned from Emit instead of recording.
	Fail error

	logger *slog.Logger
	closed bool
}

// NewRecorder returns a Recorder that logs events at debug level when logger
// is non-nil.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Emit implements Device.
func (r *Recorder) Emit(key keys.Key, value int32) error {
	if r.closed {
		return ErrClosed
	}
	if r.Fail != nil {
		return r.Fail
	}
	r.Events = append(r.Events, Event{Key: key, Value: value})
	if r.logger != nil {
		r.logger.Debug("key event", "key", key.String(), "value", value)
	}
	return nil
}

// Sync implements Device.
func (r *Recorder) Sync() error {
	if r.closed {
		return ErrClosed
	}
	r.Syncs++
	return nil
}

// Close implements Device.
func (r *Recorder) Close() error {
	r.closed = true
	return nil
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
	r.Syncs = 0
}
