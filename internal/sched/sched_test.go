package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualAfterFunc(t *testing.T) {
	m := NewManual(time.Time{})
	fired := 0
	timer := m.AfterFunc(100*time.Millisecond, func() { fired++ })

	m.Advance(99 * time.Millisecond)
	assert.Equal(t, 0, fired)
	assert.True(t, timer.Live())

	m.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.False(t, timer.Live(), "one-shot timer should be dead after firing")

	m.Advance(time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManualCancel(t *testing.T) {
	m := NewManual(time.Time{})
	fired := false
	timer := m.AfterFunc(10*time.Millisecond, func() { fired = true })
	timer.Cancel()
	timer.Cancel()

	m.Advance(time.Second)
	assert.False(t, fired)
	assert.False(t, timer.Live())
}

func TestManualEvery(t *testing.T) {
	m := NewManual(time.Time{})
	var ticks []time.Duration
	start := m.Now()
	var timer *Timer
	timer = m.Every(70*time.Millisecond, func() {
		ticks = append(ticks, m.Now().Sub(start))
		if len(ticks) == 3 {
			timer.Cancel()
		}
	})

	m.Advance(time.Second)
	assert.Equal(t, []time.Duration{70 * time.Millisecond, 140 * time.Millisecond, 210 * time.Millisecond}, ticks)
	assert.False(t, timer.Live())
}

func TestManualNestedScheduling(t *testing.T) {
	m := NewManual(time.Time{})
	var order []string
	m.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "outer")
		m.AfterFunc(5*time.Millisecond, func() { order = append(order, "inner") })
	})
	m.AfterFunc(12*time.Millisecond, func() { order = append(order, "second") })

	m.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"outer", "second", "inner"}, order)
}

func TestNilTimer(t *testing.T) {
	var timer *Timer
	assert.False(t, timer.Live())
	timer.Cancel()
}

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop(16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	err := l.Do(ctx, func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	want := errors.New("boom")
	assert.Equal(t, want, l.Do(ctx, func() error { return want }))
}

func TestLoopTimers(t *testing.T) {
	l := NewLoop(16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	fired := make(chan struct{}, 1)
	var cancelled *Timer
	require.NoError(t, l.Do(ctx, func() error {
		l.AfterFunc(5*time.Millisecond, func() { fired <- struct{}{} })
		cancelled = l.AfterFunc(5*time.Millisecond, func() { t.Error("cancelled timer fired") })
		cancelled.Cancel()
		return nil
	}))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	ticks := make(chan struct{}, 10)
	var ticker *Timer
	require.NoError(t, l.Do(ctx, func() error {
		ticker = l.Every(2*time.Millisecond, func() {
			select {
			case ticks <- struct{}{}:
			default:
			}
		})
		return nil
	}))
	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("ticker stalled")
		}
	}
	require.NoError(t, l.Do(ctx, func() error {
		ticker.Cancel()
		return nil
	}))
}

func TestLoopStop(t *testing.T) {
	l := NewLoop(1, nil)
	ctx := context.Background()
	go l.Run(ctx)
	l.Stop()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(ctx, func() error { return nil }), ErrStopped)
}
