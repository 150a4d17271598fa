// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/store/memory"
)

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ev.(events.TaskOverdueEvent).TaskID)
	return nil
}

func (r *recorder) taskIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func seed(t *testing.T, st *memory.Store, now time.Time) {
	t.Helper()
	past, future := now.Add(-time.Minute), now.Add(time.Hour)
	stamped := now.Add(-30 * time.Second)
	for _, tk := range []model.Task{
		{ID: "late", Status: model.TaskInProgress, ScheduledEnd: &past},
		{ID: "late-pending", Status: model.TaskPending, ScheduledEnd: &past},
		{ID: "on-time", Status: model.TaskAssigned, ScheduledEnd: &future},
		{ID: "done", Status: model.TaskCompleted, ScheduledEnd: &past},
		{ID: "unscheduled", Status: model.TaskInProgress},
		{ID: "notified", Status: model.TaskPaused, ScheduledEnd: &past, OverdueNotifiedAt: &stamped},
	} {
		_, err := st.CreateTask(context.Background(), tk)
		require.NoError(t, err)
	}
}

func TestSweep_PublishesOverdueOnce(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	seed(t, st, now)
	rec := &recorder{}
	s := New(st, rec, Config{RenotifyAfter: time.Hour})
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"late", "late-pending"}, rec.taskIDs())
	last, lastErr := s.LastRun()
	assert.Equal(t, now, last)
	assert.NoError(t, lastErr)

	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "unstamped tasks stay suppressed until renotify window passes")

	now = now.Add(time.Hour)
	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSweep_StampedTaskIsNotReported(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	st := memory.New()
	seed(t, st, now)
	rec := &recorder{}
	s := New(st, rec, Config{})
	s.now = func() time.Time { return now }

	_, err := st.UpdateTask(context.Background(), "late", func(tk *model.Task) error {
		tk.OverdueNotifiedAt = &now
		return nil
	})
	require.NoError(t, err)

	_, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"late-pending"}, rec.taskIDs())
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st := memory.New()
	s := New(st, &recorder{}, Config{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
