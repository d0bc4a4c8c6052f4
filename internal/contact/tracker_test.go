package contact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vboard/internal/feedback"
	"vboard/internal/input"
	"vboard/internal/keys"
	"vboard/internal/modifier"
	"vboard/internal/sched"
	"vboard/internal/sink"
)

var (
	c1 = input.TouchContact(1)
	c2 = input.TouchContact(2)
	c3 = input.TouchContact(3)
)

type harness struct {
	tr    *Tracker
	clock *sched.Manual
	start time.Time
	sink  *sink.Journal
	obs   *feedback.Recorder
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		clock: sched.NewManual(time.Time{}),
		sink:  sink.NewJournal(),
		obs:   &feedback.Recorder{},
	}
	h.start = h.clock.Now()
	h.tr = New(h.clock, h.sink, h.obs, opts, nil)
	return h
}

func (h *harness) now() time.Duration {
	return h.clock.Now().Sub(h.start)
}

func (h *harness) begin(t *testing.T, id input.ContactID, k keys.Key) {
	t.Helper()
	require.NoError(t, h.tr.Begin(id, k, h.now()))
}

func (h *harness) end(t *testing.T, id input.ContactID) {
	t.Helper()
	require.NoError(t, h.tr.End(id, h.now()))
}

func (h *harness) tap(t *testing.T, id input.ContactID, k keys.Key) {
	t.Helper()
	h.begin(t, id, k)
	h.end(t, id)
}

func TestOrdinaryKeyTapsOnceAndPaints(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, input.MouseContact, keys.KeyA)
	assert.Equal(t, 1, h.sink.Taps(keys.KeyA))
	pressed, _ := h.obs.KeyPressed(keys.KeyA)
	assert.True(t, pressed)

	h.end(t, input.MouseContact)
	pressed, _ = h.obs.KeyPressed(keys.KeyA)
	assert.False(t, pressed)
	assert.Zero(t, h.tr.RefCount(keys.KeyA))
	assert.Empty(t, h.tr.Contacts())
}

func TestReferenceCountAcrossContacts(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyA)
	h.begin(t, c2, keys.KeyA)
	h.end(t, c1)

	assert.Equal(t, 1, h.tr.RefCount(keys.KeyA))
	pressed, _ := h.obs.KeyPressed(keys.KeyA)
	assert.True(t, pressed, "still pressed while c2 holds the key")
	assert.Equal(t, 0, h.obs.Count(feedback.KindKeyVisual, keys.KeyA, false))

	h.end(t, c2)
	assert.Zero(t, h.tr.RefCount(keys.KeyA))
	assert.Equal(t, 1, h.obs.Count(feedback.KindKeyVisual, keys.KeyA, true))
	assert.Equal(t, 1, h.obs.Count(feedback.KindKeyVisual, keys.KeyA, false))
	assert.Equal(t, 2, h.sink.Taps(keys.KeyA), "taps are per press regardless of the count")
}

func TestRepeatHoldYieldsThreeTaps(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyB)
	h.clock.Advance(420*time.Millisecond + 2*70*time.Millisecond)
	assert.Equal(t, 3, h.sink.Taps(keys.KeyB))

	h.end(t, c1)
	h.clock.Advance(time.Second)
	assert.Equal(t, 3, h.sink.Taps(keys.KeyB))
	assert.Zero(t, h.clock.Pending())
}

func TestReleaseBeforeRepeatYieldsOneTap(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyB)
	h.clock.Advance(300 * time.Millisecond)
	h.end(t, c1)
	h.clock.Advance(time.Second)

	assert.Equal(t, 1, h.sink.Taps(keys.KeyB))
}

func TestNewOrdinaryKeyStopsOtherRepeat(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyA)
	h.clock.Advance(500 * time.Millisecond)
	require.Equal(t, 2, h.sink.Taps(keys.KeyA))

	h.begin(t, c2, keys.KeyB)
	assert.False(t, h.tr.Repeating(c1))
	h.clock.Advance(500 * time.Millisecond)

	assert.Equal(t, 2, h.sink.Taps(keys.KeyA))
	assert.Equal(t, 2, h.sink.Taps(keys.KeyB))
}

func TestShiftThenKeyIsCombo(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyLeftShift)
	h.tap(t, c2, keys.KeyA)
	h.end(t, c1)

	st := h.tr.Registry().State(keys.KeyLeftShift)
	assert.Equal(t, modifier.State{}, st)
	assert.Equal(t, []sink.Op{
		{Kind: sink.OpPress, Key: keys.KeyLeftShift},
		{Kind: sink.OpTap, Key: keys.KeyA},
		{Kind: sink.OpRelease, Key: keys.KeyLeftShift},
	}, h.sink.Ops)
}

func TestOneShotModifier(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyLeftCtrl)
	require.True(t, h.tr.Registry().State(keys.KeyLeftCtrl).Latched)

	h.clock.Advance(time.Second)
	h.tap(t, c1, keys.KeyC)
	assert.False(t, h.tr.Registry().IsActive(keys.KeyLeftCtrl))

	h.tap(t, c1, keys.KeyC)
	assert.Equal(t, []sink.Op{
		{Kind: sink.OpPress, Key: keys.KeyLeftCtrl},
		{Kind: sink.OpTap, Key: keys.KeyC},
		{Kind: sink.OpRelease, Key: keys.KeyLeftCtrl},
		{Kind: sink.OpTap, Key: keys.KeyC},
	}, h.sink.Ops)
}

func TestLatchSurvivesWhileHeldElsewhere(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyLeftAlt)
	h.begin(t, c2, keys.KeyLeftAlt)
	h.tap(t, c3, keys.KeyT)

	st := h.tr.Registry().State(keys.KeyLeftAlt)
	assert.True(t, st.Latched)
	assert.True(t, st.Held)
	assert.True(t, h.sink.IsDown(keys.KeyLeftAlt))
}

func TestModifierHeldByThreeContacts(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	a, b, c := c1, c2, c3

	h.begin(t, a, keys.KeyLeftShift)
	h.begin(t, b, keys.KeyLeftShift)
	h.end(t, a)
	assert.True(t, h.tr.Registry().State(keys.KeyLeftShift).Held)
	h.begin(t, c, keys.KeyLeftShift)
	h.end(t, b)
	assert.True(t, h.tr.Registry().State(keys.KeyLeftShift).Held)
	h.end(t, c)

	st := h.tr.Registry().State(keys.KeyLeftShift)
	assert.False(t, st.Held)
	assert.True(t, st.Latched, "overlapping presses act as one clean tap")
	assert.Equal(t, 1, h.sink.Presses(keys.KeyLeftShift))
	assert.Zero(t, h.sink.Releases(keys.KeyLeftShift))
	assert.Zero(t, h.tr.RefCount(keys.KeyLeftShift))
}

func TestHeldModifierBeganElsewhereIsCombo(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyLeftShift)
	h.begin(t, c2, keys.KeyLeftCtrl)
	h.begin(t, c3, keys.KeyLeftShift)
	assert.True(t, h.tr.Registry().State(keys.KeyLeftCtrl).ComboUsed)

	h.end(t, c2)
	ctrl := h.tr.Registry().State(keys.KeyLeftCtrl)
	assert.False(t, ctrl.Latched)
	assert.False(t, ctrl.Active())
	assert.Equal(t, 1, h.sink.Releases(keys.KeyLeftCtrl))
}

func TestOppositeShiftTakesOver(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyLeftShift)
	h.begin(t, c2, keys.KeyRightShift)

	assert.Equal(t, modifier.State{}, h.tr.Registry().State(keys.KeyLeftShift))
	assert.True(t, h.tr.Registry().State(keys.KeyRightShift).Held)

	h.end(t, c1)
	assert.False(t, h.tr.Registry().IsActive(keys.KeyLeftShift), "a force-released modifier does not latch on its contact's end")
	assert.False(t, h.sink.IsDown(keys.KeyLeftShift))

	h.end(t, c2)
	assert.True(t, h.tr.Registry().State(keys.KeyRightShift).Latched)
	assert.Equal(t, []sink.Op{
		{Kind: sink.OpPress, Key: keys.KeyLeftShift},
		{Kind: sink.OpRelease, Key: keys.KeyLeftShift},
		{Kind: sink.OpPress, Key: keys.KeyRightShift},
	}, h.sink.Ops)
}

func TestDoubleShiftShortcut(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyLeftShift)
	h.clock.Advance(150 * time.Millisecond)
	h.tap(t, c1, keys.KeyLeftShift)

	assert.Equal(t, 1, h.sink.Taps(keys.KeySpace))
	assert.False(t, h.tr.IsShiftActive())
	assert.Empty(t, h.sink.Down())

	// A third tap opens a fresh window.
	h.clock.Advance(100 * time.Millisecond)
	h.tap(t, c1, keys.KeyLeftShift)
	assert.Equal(t, 1, h.sink.Taps(keys.KeySpace))
	assert.True(t, h.tr.IsShiftActive(), "the third tap latches")
}

func TestDoubleShiftTooSlow(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyLeftShift)
	h.clock.Advance(500 * time.Millisecond)
	h.tap(t, c1, keys.KeyLeftShift)

	assert.Zero(t, h.sink.Taps(keys.KeySpace))
	assert.False(t, h.tr.IsShiftActive(), "second clean tap unlatches")
}

func TestDoubleShiftDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Shortcut.Enabled = false
	h := newHarness(t, opts)

	h.tap(t, c1, keys.KeyLeftShift)
	h.clock.Advance(100 * time.Millisecond)
	h.tap(t, c1, keys.KeyLeftShift)

	assert.Zero(t, h.sink.TotalTaps())
}

func TestSpaceShortPressTaps(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeySpace)
	h.clock.Advance(200 * time.Millisecond)
	h.end(t, c1)

	assert.Equal(t, 1, h.sink.Taps(keys.KeySpace))
	assert.Zero(t, h.obs.Count(feedback.KindCursorMode, 0, true))
	assert.Zero(t, h.clock.Pending())
}

func TestSpaceCursorDrag(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeySpace)
	h.clock.Advance(300 * time.Millisecond)
	require.True(t, h.tr.InCursorMode(c1))

	base := h.now()
	require.NoError(t, h.tr.Update(c1, 100, 100, base))
	for i := 1; i <= 5; i++ {
		require.NoError(t, h.tr.Update(c1, 100-float64(12*i), 101, base+time.Duration(i)*time.Millisecond))
	}
	h.end(t, c1)

	assert.Equal(t, 5, h.sink.Taps(keys.KeyLeft))
	assert.Zero(t, h.sink.Taps(keys.KeySpace))
	assert.Zero(t, h.sink.Taps(keys.KeyUp)+h.sink.Taps(keys.KeyDown))
	assert.Equal(t, 1, h.obs.Count(feedback.KindCursorMode, 0, false))
	pressed, _ := h.obs.KeyPressed(keys.KeySpace)
	assert.False(t, pressed)
}

func TestSpaceConsumesLatch(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyLeftShift)
	h.clock.Advance(time.Second)
	h.tap(t, c1, keys.KeySpace)

	assert.False(t, h.tr.IsShiftActive())
	assert.Equal(t, []sink.Op{
		{Kind: sink.OpPress, Key: keys.KeyLeftShift},
		{Kind: sink.OpTap, Key: keys.KeySpace},
		{Kind: sink.OpRelease, Key: keys.KeyLeftShift},
	}, h.sink.Ops)
}

func TestUpdateIgnoredForOtherKeys(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyA)
	require.NoError(t, h.tr.Update(c1, 500, 500, 0))
	require.NoError(t, h.tr.Update(c2, 500, 500, 0))
	assert.Equal(t, 1, h.sink.TotalTaps())
}

func TestCapsLock(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyCapsLock)
	assert.True(t, h.tr.CapsLock())
	assert.Equal(t, 1, h.sink.Taps(keys.KeyCapsLock))
	assert.Equal(t, 1, h.obs.Count(feedback.KindCapsLock, 0, true))
	pressed, _ := h.obs.KeyPressed(keys.KeyCapsLock)
	assert.True(t, pressed)

	h.clock.Advance(DefaultCapsFlash)
	pressed, _ = h.obs.KeyPressed(keys.KeyCapsLock)
	assert.False(t, pressed, "flash ends on its own")

	h.clock.Advance(time.Second)
	h.end(t, c1)
	assert.False(t, h.tr.Repeating(c1))
	assert.Equal(t, 1, h.sink.TotalTaps())

	h.tap(t, c1, keys.KeyCapsLock)
	assert.False(t, h.tr.CapsLock())
	assert.Equal(t, 1, h.obs.Count(feedback.KindCapsLock, 0, false))
}

func TestDuplicateBeginEndsPreviousPress(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.begin(t, c1, keys.KeyA)
	h.begin(t, c1, keys.KeyB)

	key, ok := h.tr.Active(c1)
	require.True(t, ok)
	assert.Equal(t, keys.KeyB, key)
	assert.Zero(t, h.tr.RefCount(keys.KeyA))
	assert.Equal(t, 1, h.tr.RefCount(keys.KeyB))
	pressed, _ := h.obs.KeyPressed(keys.KeyA)
	assert.False(t, pressed)

	h.clock.Advance(time.Second)
	assert.Equal(t, 1, h.sink.Taps(keys.KeyA), "the first press no longer repeats")
}

func TestUnknownEndIsNoop(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.end(t, c1)
	assert.Empty(t, h.sink.Ops)
	assert.Empty(t, h.obs.Notes)
}

func TestHandleDispatch(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	require.NoError(t, h.tr.Handle(input.Event{Contact: c1, Phase: input.PhaseBegin, Key: keys.KeyEnter}))
	require.NoError(t, h.tr.Handle(input.Event{Contact: c1, Phase: input.PhaseUpdate, X: 3, Y: 4}))
	require.NoError(t, h.tr.Handle(input.Event{Contact: c1, Phase: input.PhaseEnd}))

	assert.Equal(t, 1, h.sink.Taps(keys.KeyEnter))
	assert.Empty(t, h.tr.Contacts())
}

func TestResetReleasesEverything(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyRightCtrl)
	h.begin(t, c1, keys.KeyLeftAlt)
	h.begin(t, c2, keys.KeyA)
	h.begin(t, c3, keys.KeySpace)
	h.clock.Advance(300 * time.Millisecond)
	require.True(t, h.tr.InCursorMode(c3))
	tapsBefore := h.sink.TotalTaps()

	require.NoError(t, h.tr.Reset())

	assert.Empty(t, h.tr.Contacts())
	assert.Empty(t, h.sink.Down())
	assert.Zero(t, h.clock.Pending())
	assert.Equal(t, tapsBefore, h.sink.TotalTaps(), "reset emits no taps")
	assert.Equal(t, 1, h.obs.Count(feedback.KindCursorMode, 0, false))
	for _, k := range []keys.Key{keys.KeyA, keys.KeySpace, keys.KeyLeftAlt, keys.KeyRightCtrl} {
		pressed, _ := h.obs.KeyPressed(k)
		assert.False(t, pressed, "%s still painted", k)
	}
}

func TestResetForgetsPendingShiftTap(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyLeftShift)
	require.NoError(t, h.tr.Reset())
	h.clock.Advance(100 * time.Millisecond)
	h.tap(t, c1, keys.KeyLeftShift)

	assert.Zero(t, h.sink.Taps(keys.KeySpace))
	assert.True(t, h.tr.Registry().State(keys.KeyLeftShift).Latched)
}

func TestSinkFailureSurfaces(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	var timerErrs []error
	h.tr.SetErrorHandler(func(err error) { timerErrs = append(timerErrs, err) })

	h.sink.Device.Fail = sink.ErrUnavailable
	err := h.tr.Begin(c1, keys.KeyA, 0)
	assert.ErrorIs(t, err, sink.ErrUnavailable)
	assert.Equal(t, 1, h.tr.RefCount(keys.KeyA), "bookkeeping still happens")

	h.clock.Advance(490 * time.Millisecond)
	require.Len(t, timerErrs, 1)
	assert.ErrorIs(t, timerErrs[0], sink.ErrUnavailable)
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.tap(t, c1, keys.KeyLeftShift)
	h.begin(t, c2, keys.KeyQ)

	s := h.tr.Snapshot()
	assert.Equal(t, map[input.ContactID]keys.Key{c2: keys.KeyQ}, s.Contacts)
	assert.Equal(t, map[keys.Key]modifier.State{keys.KeyLeftShift: {Latched: true}}, s.Modifiers)
	assert.True(t, s.ShiftActive)
	assert.False(t, s.CapsLock)
}
