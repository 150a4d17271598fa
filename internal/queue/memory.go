// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps jobs in process memory. It is not durable.
type MemoryBackend struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{jobs: make(map[string]*Job)}
}

func cloneJob(j *Job) Job {
	out := *j
	if j.LeaseUntil != nil {
		l := *j.LeaseUntil
		out.LeaseUntil = &l
	}
	return out
}

func (m *MemoryBackend) Put(_ context.Context, job Job) (Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.jobs[job.ID]; ok {
		return cloneJob(existing), false, nil
	}
	job.State = StateWaiting
	stored := job
	m.jobs[job.ID] = &stored
	return cloneJob(&stored), true, nil
}

func claimable(j *Job, queue string, now time.Time) bool {
	if j.Queue != queue {
		return false
	}
	switch j.State {
	case StateWaiting:
		return !j.RunAt.After(now)
	case StateActive:
		return j.LeaseUntil != nil && !j.LeaseUntil.After(now)
	}
	return false
}

// claimsBefore orders claimable jobs: waiting before expired leases, then by
// due time (run_at or lease_until), then by id.
func claimsBefore(a, b *Job) bool {
	if a.State != b.State {
		return a.State == StateWaiting
	}
	da, db := claimKey(a), claimKey(b)
	if !da.Equal(db) {
		return da.Before(db)
	}
	return a.ID < b.ID
}

func claimKey(j *Job) time.Time {
	if j.State == StateActive && j.LeaseUntil != nil {
		return *j.LeaseUntil
	}
	return j.RunAt
}

func (m *MemoryBackend) Claim(_ context.Context, queue string, now time.Time, lease time.Duration) (Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var next *Job
	for _, j := range m.jobs {
		if !claimable(j, queue, now) {
			continue
		}
		if next == nil || claimsBefore(j, next) {
			next = j
		}
	}
	if next == nil {
		return Job{}, false, nil
	}
	until := now.Add(lease)
	next.State = StateActive
	next.Attempts++
	next.LeaseUntil = &until
	next.UpdatedAt = now
	return cloneJob(next), true, nil
}

func (m *MemoryBackend) transition(id string, fn func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	fn(j)
	return nil
}

func (m *MemoryBackend) Complete(_ context.Context, id string, result json.RawMessage, now time.Time) error {
	return m.transition(id, func(j *Job) {
		j.State = StateCompleted
		j.Result = append(json.RawMessage(nil), result...)
		j.LeaseUntil = nil
		j.UpdatedAt = now
	})
}

func (m *MemoryBackend) Retry(_ context.Context, id string, runAt time.Time, lastErr string, now time.Time) error {
	return m.transition(id, func(j *Job) {
		j.State = StateWaiting
		j.RunAt = runAt
		j.LastError = lastErr
		j.LeaseUntil = nil
		j.UpdatedAt = now
	})
}

func (m *MemoryBackend) Fail(_ context.Context, id string, lastErr string, now time.Time) error {
	return m.transition(id, func(j *Job) {
		j.State = StateFailed
		j.LastError = lastErr
		j.LeaseUntil = nil
		j.UpdatedAt = now
	})
}

func (m *MemoryBackend) Get(_ context.Context, id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	return cloneJob(j), nil
}

func (m *MemoryBackend) Failed(_ context.Context, queue string, limit int) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Job
	for _, j := range m.jobs {
		if j.Queue == queue && j.State == StateFailed {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].UpdatedAt.Equal(out[k].UpdatedAt) {
			return out[i].UpdatedAt.After(out[k].UpdatedAt)
		}
		return out[i].ID < out[k].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryBackend) Stats(_ context.Context, queue string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, j := range m.jobs {
		if j.Queue != queue {
			continue
		}
		switch j.State {
		case StateWaiting:
			s.Waiting++
		case StateActive:
			s.Active++
		case StateCompleted:
			s.Completed++
		case StateFailed:
			s.Failed++
		}
	}
	return s, nil
}

func (m *MemoryBackend) Close() error { return nil }
