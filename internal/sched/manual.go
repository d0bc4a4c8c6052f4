package sched

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler driven by Advance. Callbacks run
// synchronously inside Advance, in due-time order, on the caller's goroutine.
type Manual struct {
	now     time.Time
	seq     int
	pending []*manualEntry
}

type manualEntry struct {
	at     time.Time
	seq    int
	period time.Duration
	timer  *Timer
	fn     func()
}

// NewManual returns a Manual clock starting at start. A zero start is
// replaced with a fixed non-zero instant so "unset" times stay distinguishable.
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// AfterFunc schedules fn once at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	m.add(d, 0, t, fn)
	return t
}

// Every schedules fn at every multiple of d from Now().
func (m *Manual) Every(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	t := &Timer{periodic: true}
	m.add(d, d, t, fn)
	return t
}

func (m *Manual) add(d, period time.Duration, t *Timer, fn func()) {
	m.seq++
	e := &manualEntry{at: m.now.Add(d), seq: m.seq, period: period, timer: t, fn: fn}
	t.stop = func() { m.remove(e) }
	m.pending = append(m.pending, e)
}

func (m *Manual) remove(e *manualEntry) {
	for i, p := range m.pending {
		if p == e {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Advance moves time forward by d, firing every callback that falls due.
// Callbacks scheduled while advancing fire too if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		e := m.next(target)
		if e == nil {
			break
		}
		m.now = e.at
		m.remove(e)
		if e.period > 0 {
			m.seq++
			e.at = e.at.Add(e.period)
			e.seq = m.seq
			m.pending = append(m.pending, e)
		}
		e.timer.fire(e.fn)
	}
	m.now = target
}

func (m *Manual) next(limit time.Time) *manualEntry {
	sort.SliceStable(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if a.at.Equal(b.at) {
			return a.seq < b.seq
		}
		return a.at.Before(b.at)
	})
	for _, e := range m.pending {
		if !e.timer.Live() {
			continue
		}
		if e.at.After(limit) {
			return nil
		}
		return e
	}
	return nil
}

// Pending returns the number of live scheduled timers.
func (m *Manual) Pending() int {
	n := 0
	for _, e := range m.pending {
		if e.timer.Live() {
			n++
		}
	}
	return n
}
