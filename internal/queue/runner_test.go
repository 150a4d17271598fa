// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fixture struct {
	now     time.Time
	backend *MemoryBackend
	queue   *Queue
	runner  *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: t0, backend: NewMemoryBackend()}
	clock := func() time.Time { return f.now }
	f.queue = New("notifications", f.backend, DefaultOptions())
	f.queue.now = clock
	f.runner = NewRunner(f.backend, "notifications", RunnerConfig{Workers: 1, JobTimeout: time.Second})
	f.runner.now = clock
	return f
}

func (f *fixture) step(t *testing.T) bool {
	t.Helper()
	ok, err := f.runner.ProcessNext(context.Background())
	require.NoError(t, err)
	return ok
}

func TestRunner_Completes(t *testing.T) {
	f := newFixture(t)
	f.runner.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		var p struct{ RecipientID string }
		require.NoError(t, job.Decode(&p))
		return Result{Data: map[string]string{"recipient": p.RecipientID}}, nil
	})

	job, err := f.queue.Add(context.Background(), "send", map[string]string{"RecipientID": "e1"})
	require.NoError(t, err)
	require.True(t, f.step(t))

	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.State)
	assert.JSONEq(t, `{"data":{"recipient":"e1"}}`, string(got.Result))
	assert.False(t, f.step(t), "nothing left")
}

func TestRunner_SkippedIsNotRetried(t *testing.T) {
	f := newFixture(t)
	var calls atomic.Int32
	f.runner.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		calls.Add(1)
		return Skip("Recipient inactive or not found"), nil
	})

	job, err := f.queue.Add(context.Background(), "send", struct{}{})
	require.NoError(t, err)
	require.True(t, f.step(t))

	f.now = f.now.Add(time.Hour)
	assert.False(t, f.step(t))
	assert.Equal(t, int32(1), calls.Load())

	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.State)
	assert.JSONEq(t, `{"skipped":true,"reason":"Recipient inactive or not found"}`, string(got.Result))
}

func TestRunner_RetriesWithBackoffThenFails(t *testing.T) {
	f := newFixture(t)
	var calls atomic.Int32
	f.runner.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		calls.Add(1)
		return Result{}, errors.New("store unavailable")
	})

	job, err := f.queue.Add(context.Background(), "send", struct{}{})
	require.NoError(t, err)

	require.True(t, f.step(t))
	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, got.State)
	assert.True(t, t0.Add(time.Second).Equal(got.RunAt), "first retry after 1s")

	f.now = t0.Add(999 * time.Millisecond)
	assert.False(t, f.step(t), "not due before backoff elapses")

	f.now = t0.Add(time.Second)
	require.True(t, f.step(t))
	got, err = f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, f.now.Add(2*time.Second).Equal(got.RunAt), "second retry after 2s")

	f.now = f.now.Add(2 * time.Second)
	require.True(t, f.step(t))

	got, err = f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "store unavailable", got.LastError)
	assert.Equal(t, int32(3), calls.Load())

	failed, err := f.queue.Failed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, job.ID, failed[0].ID)
}

func TestRunner_PermanentErrorFailsImmediately(t *testing.T) {
	f := newFixture(t)
	f.runner.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		return Result{}, Permanent(errors.New("malformed payload"))
	})
	job, err := f.queue.Add(context.Background(), "send", struct{}{})
	require.NoError(t, err)
	require.True(t, f.step(t))

	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, 1, got.Attempts)
}

func TestRunner_UnknownTypeFails(t *testing.T) {
	f := newFixture(t)
	job, err := f.queue.Add(context.Background(), "mystery", struct{}{})
	require.NoError(t, err)
	require.True(t, f.step(t))

	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Contains(t, got.LastError, "unknown job type")
}

func TestRunner_PanicIsRetried(t *testing.T) {
	f := newFixture(t)
	f.runner.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		panic("nil map")
	})
	job, err := f.queue.Add(context.Background(), "send", struct{}{})
	require.NoError(t, err)
	require.True(t, f.step(t))

	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, got.State)
	assert.Contains(t, got.LastError, "processor panic")
}

func TestRunner_ExpiredFinalLeaseFails(t *testing.T) {
	f := newFixture(t)
	var calls atomic.Int32
	f.runner.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		calls.Add(1)
		return Result{}, nil
	})
	job, err := f.queue.Add(context.Background(), "send", struct{}{}, WithAttempts(1))
	require.NoError(t, err)

	// Simulate a worker that claimed the job and crashed.
	_, ok, err := f.backend.Claim(context.Background(), "notifications", f.now, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	f.now = f.now.Add(time.Minute)
	require.True(t, f.step(t))
	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRunner_AttemptTimeout(t *testing.T) {
	f := newFixture(t)
	f.runner = NewRunner(f.backend, "notifications", RunnerConfig{Workers: 1, JobTimeout: 20 * time.Millisecond})
	f.runner.now = func() time.Time { return f.now }
	f.runner.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	})
	job, err := f.queue.Add(context.Background(), "send", struct{}{})
	require.NoError(t, err)
	require.True(t, f.step(t))

	got, err := f.backend.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, got.State)
	assert.Contains(t, got.LastError, "deadline exceeded")
}

func TestQueue_DuplicateJobID(t *testing.T) {
	f := newFixture(t)
	a, err := f.queue.Add(context.Background(), "cleanup", struct{}{}, WithJobID("cleanup:2026-03-01"))
	require.NoError(t, err)
	b, err := f.queue.Add(context.Background(), "cleanup", struct{}{}, WithJobID("cleanup:2026-03-01"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	stats, err := f.queue.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Waiting)
}

func TestRunner_RunProcessesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := NewMemoryBackend()
	q := New("notifications", backend, DefaultOptions())
	r := NewRunner(backend, "notifications", RunnerConfig{Workers: 3, PollInterval: 5 * time.Millisecond, JobTimeout: time.Second, RateLimit: 1000})

	var processed atomic.Int32
	r.Handle("send", func(ctx context.Context, job Job) (Result, error) {
		processed.Add(1)
		return Result{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for i := 0; i < 10; i++ {
		_, err := q.Add(context.Background(), "send", struct{}{})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return processed.Load() == 10 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Completed)
}
