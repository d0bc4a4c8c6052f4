package shortcut

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vboard/internal/keys"
	"vboard/internal/sink"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestDetector(opts Options) (*DoubleTap, *sink.Journal, *[]keys.Key) {
	j := sink.NewJournal()
	var released []keys.Key
	d := New(j, func(k keys.Key) error {
		released = append(released, k)
		return j.SetState(k, false)
	}, opts, nil)
	return d, j, &released
}

func TestDoubleTapWindow(t *testing.T) {
	tests := []struct {
		name  string
		gap   time.Duration
		fires bool
	}{
		{"quick", 100 * time.Millisecond, true},
		{"at timeout", 380 * time.Millisecond, true},
		{"too slow", 381 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, j, released := newTestDetector(DefaultOptions())

			require.NoError(t, d.OnRelease(t0))
			require.NoError(t, d.OnRelease(t0.Add(tt.gap)))

			if tt.fires {
				assert.Equal(t, 1, j.Taps(keys.KeySpace))
				assert.ElementsMatch(t, keys.Shifts[:], *released)
				assert.False(t, d.Pending())
			} else {
				assert.Zero(t, j.TotalTaps())
				assert.Empty(t, *released)
				assert.True(t, d.Pending(), "the slow tap opens a new window")
			}
		})
	}
}

func TestThirdTapStartsFreshWindow(t *testing.T) {
	d, j, _ := newTestDetector(DefaultOptions())

	require.NoError(t, d.OnRelease(t0))
	require.NoError(t, d.OnRelease(t0.Add(100*time.Millisecond)))
	require.NoError(t, d.OnRelease(t0.Add(200*time.Millisecond)))
	assert.Equal(t, 1, j.Taps(keys.KeySpace), "the third tap must not fire again")
	assert.True(t, d.Pending())

	require.NoError(t, d.OnRelease(t0.Add(300*time.Millisecond)))
	assert.Equal(t, 2, j.Taps(keys.KeySpace))
}

func TestResetForgetsFirstTap(t *testing.T) {
	d, j, _ := newTestDetector(DefaultOptions())

	require.NoError(t, d.OnRelease(t0))
	d.Reset()
	assert.False(t, d.Pending())

	require.NoError(t, d.OnRelease(t0.Add(100*time.Millisecond)))
	assert.Zero(t, j.TotalTaps())
	assert.True(t, d.Pending())
}

func TestDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Enabled = false
	d, j, released := newTestDetector(opts)

	for i := 0; i < 4; i++ {
		require.NoError(t, d.OnRelease(t0.Add(time.Duration(i)*50*time.Millisecond)))
	}
	assert.Empty(t, j.Ops)
	assert.Empty(t, *released)
	assert.False(t, d.Pending())
}

func TestEmitOrder(t *testing.T) {
	j := sink.NewJournal()
	combo := keys.Shortcut{keys.KeyLeftCtrl, keys.KeyLeftAlt, keys.KeyT}

	require.NoError(t, Emit(j, combo))
	assert.Equal(t, []sink.Op{
		{Kind: sink.OpPress, Key: keys.KeyLeftCtrl},
		{Kind: sink.OpPress, Key: keys.KeyLeftAlt},
		{Kind: sink.OpTap, Key: keys.KeyT},
		{Kind: sink.OpRelease, Key: keys.KeyLeftAlt},
		{Kind: sink.OpRelease, Key: keys.KeyLeftCtrl},
	}, j.Ops)
	assert.Empty(t, j.Down())
}

func TestEmitModifiersOnly(t *testing.T) {
	j := sink.NewJournal()

	require.NoError(t, Emit(j, keys.Shortcut{keys.KeyLeftMeta}))
	assert.Equal(t, []sink.Op{
		{Kind: sink.OpPress, Key: keys.KeyLeftMeta},
		{Kind: sink.OpTap, Key: keys.KeyLeftMeta},
		{Kind: sink.OpRelease, Key: keys.KeyLeftMeta},
	}, j.Ops)
}

func TestEmitDefaultShortcut(t *testing.T) {
	d, j, _ := newTestDetector(DefaultOptions())

	require.NoError(t, d.OnRelease(t0))
	j.Clear()
	require.NoError(t, d.OnRelease(t0.Add(50*time.Millisecond)))

	assert.Equal(t, []sink.Op{
		{Kind: sink.OpPress, Key: keys.KeyLeftShift},
		{Kind: sink.OpTap, Key: keys.KeySpace},
		{Kind: sink.OpRelease, Key: keys.KeyLeftShift},
	}, j.Ops)
}

func TestEmitFailure(t *testing.T) {
	j := sink.NewJournal()
	j.Device.Fail = sink.ErrUnavailable

	err := Emit(j, keys.DefaultShortcut)
	assert.ErrorIs(t, err, sink.ErrUnavailable)
}

func TestNewFillsDefaults(t *testing.T) {
	d := New(sink.NewJournal(), nil, Options{Enabled: true}, nil)
	assert.Equal(t, DefaultTimeout, d.Options().Timeout)
	assert.Equal(t, keys.DefaultShortcut, d.Options().Combo)
}
