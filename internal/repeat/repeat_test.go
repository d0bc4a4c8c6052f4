package repeat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vboard/internal/input"
	"vboard/internal/keys"
	"vboard/internal/sched"
	"vboard/internal/sink"
)

func newTestScheduler(t *testing.T) (*Scheduler, *sched.Manual, *sink.Journal) {
	t.Helper()
	clock := sched.NewManual(time.Time{})
	j := sink.NewJournal()
	return New(clock, j, DefaultOptions(), nil, nil), clock, j
}

func TestRepeatTiming(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		taps    int
	}{
		{"before delay", 419 * time.Millisecond, 0},
		{"at delay", 420 * time.Millisecond, 0},
		{"first tick", 490 * time.Millisecond, 1},
		{"second tick", 560 * time.Millisecond, 2},
		{"one second", time.Second, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clock, j := newTestScheduler(t)
			s.Start(input.MouseContact, keys.KeyA)
			clock.Advance(tt.elapsed)
			assert.Equal(t, tt.taps, j.Taps(keys.KeyA))
		})
	}
}

func TestCancelBeforeDelay(t *testing.T) {
	s, clock, j := newTestScheduler(t)

	s.Start(input.MouseContact, keys.KeyA)
	clock.Advance(200 * time.Millisecond)
	s.Cancel(input.MouseContact)
	clock.Advance(time.Second)

	assert.Zero(t, j.Taps(keys.KeyA))
	assert.False(t, s.Active(input.MouseContact))
	assert.Zero(t, clock.Pending())
}

func TestCancelStopsTicks(t *testing.T) {
	s, clock, j := newTestScheduler(t)

	s.Start(input.MouseContact, keys.KeyA)
	clock.Advance(560 * time.Millisecond)
	require.True(t, s.Repeating(input.MouseContact))
	s.Cancel(input.MouseContact)
	clock.Advance(time.Second)

	assert.Equal(t, 2, j.Taps(keys.KeyA))
	assert.Zero(t, clock.Pending())
}

func TestRestartReplacesRecord(t *testing.T) {
	s, clock, j := newTestScheduler(t)

	s.Start(input.MouseContact, keys.KeyA)
	clock.Advance(300 * time.Millisecond)
	s.Start(input.MouseContact, keys.KeyB)
	clock.Advance(200 * time.Millisecond)

	assert.Zero(t, j.Taps(keys.KeyA))
	assert.Zero(t, j.Taps(keys.KeyB), "the new record starts a fresh delay")

	clock.Advance(290 * time.Millisecond)
	assert.Equal(t, 1, j.Taps(keys.KeyB))
}

func TestCancelOthers(t *testing.T) {
	s, clock, j := newTestScheduler(t)
	a, b := input.TouchContact(1), input.TouchContact(2)

	s.Start(a, keys.KeyA)
	s.Start(b, keys.KeyB)
	s.CancelOthers(b)
	clock.Advance(600 * time.Millisecond)

	assert.False(t, s.Active(a))
	assert.True(t, s.Active(b))
	assert.Zero(t, j.Taps(keys.KeyA))
	assert.Equal(t, 2, j.Taps(keys.KeyB))
}

func TestTapFailureIsReported(t *testing.T) {
	clock := sched.NewManual(time.Time{})
	j := sink.NewJournal()
	var errs []error
	s := New(clock, j, Options{InitialDelay: 10 * time.Millisecond, Interval: 10 * time.Millisecond}, nil, func(err error) {
		errs = append(errs, err)
	})

	s.Start(input.MouseContact, keys.KeyA)
	j.Device.Fail = sink.ErrUnavailable
	clock.Advance(30 * time.Millisecond)

	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], sink.ErrUnavailable)
	assert.True(t, s.Active(input.MouseContact), "failures do not stop the repeat")
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	s := New(sched.NewManual(time.Time{}), sink.NewJournal(), Options{}, nil, nil)
	assert.Equal(t, DefaultOptions(), s.opts)
}
