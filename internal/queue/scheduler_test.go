// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeTimer struct {
	d  time.Duration
	ch chan time.Time
}

func (f *fakeTimer) C() <-chan time.Time { return f.ch }
func (f *fakeTimer) Stop() bool          { return true }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers chan *fakeTimer
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{d: d, ch: make(chan time.Time, 1)}
	c.timers <- t
	return t
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("03:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 3}, tod)
	assert.Equal(t, "03:00", tod.String())

	for _, bad := range []string{"", "3", "24:00", "12:60", "ab:cd"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDay_Next(t *testing.T) {
	at := TimeOfDay{Hour: 3}
	before := time.Date(2026, 3, 1, 2, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), at.Next(before))

	exactly := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), at.Next(exactly))
}

func TestScheduler_EnqueuesOncePerDay(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := NewMemoryBackend()
	q := New("notifications", backend, DefaultOptions())
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), timers: make(chan *fakeTimer, 4)}

	s := NewScheduler(time.UTC).WithClock(clock)
	job := DailyJob{Queue: q, JobType: "cleanup", At: TimeOfDay{Hour: 3}}
	s.Add(job)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	first := <-clock.timers
	assert.Equal(t, 3*time.Hour, first.d)

	fireAt := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	clock.set(fireAt)
	first.ch <- fireAt

	second := <-clock.timers
	assert.Equal(t, 24*time.Hour, second.d)

	got, err := backend.Get(context.Background(), "cleanup:2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, "cleanup", got.Type)

	// A second scheduler instance firing for the same day does not duplicate.
	s.Fire(context.Background(), job, fireAt)
	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Waiting)

	cancel()
	require.NoError(t, <-done)
}
