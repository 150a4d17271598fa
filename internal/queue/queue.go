// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
)

// Queue is the producer side of a named queue.
type Queue struct {
	name     string
	backend  Backend
	defaults Options
	now      func() time.Time
}

// New returns a producer for the named queue. defaults applies to every
// Add before per-call options.
func New(name string, backend Backend, defaults Options) *Queue {
	return &Queue{
		name:     name,
		backend:  backend,
		defaults: buildOptions(defaults, nil),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) Backend() Backend { return q.backend }

// Add enqueues a job of jobType carrying payload. Enqueueing with an id
// that already exists returns the existing job.
func (q *Queue) Add(ctx context.Context, jobType string, payload any, opts ...Option) (Job, error) {
	o := buildOptions(q.defaults, opts)
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", jobType, err)
	}

	now := q.now()
	id := o.JobID
	if id == "" {
		id = uuid.NewString()
	}
	job := Job{
		ID:          id,
		Queue:       q.name,
		Type:        jobType,
		Payload:     raw,
		MaxAttempts: o.Attempts,
		Backoff:     o.Backoff,
		State:       StateWaiting,
		RunAt:       now.Add(o.Delay),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored, created, err := q.backend.Put(ctx, job)
	if err != nil {
		return Job{}, fmt.Errorf("enqueue %s: %w", jobType, err)
	}

	logger := log.WithComponentFromContext(ctx, "queue")
	if !created {
		logger.Debug().
			Str(log.FieldQueue, q.name).
			Str(log.FieldJobID, stored.ID).
			Str(log.FieldJobType, jobType).
			Msg("job already enqueued")
		return stored, nil
	}
	metrics.IncJobEnqueued(q.name, jobType)
	logger.Debug().
		Str(log.FieldQueue, q.name).
		Str(log.FieldJobID, stored.ID).
		Str(log.FieldJobType, jobType).
		Int(log.FieldMaxAttempts, stored.MaxAttempts).
		Msg("job enqueued")
	return stored, nil
}

// Failed lists retained failed jobs, most recent first.
func (q *Queue) Failed(ctx context.Context, limit int) ([]Job, error) {
	return q.backend.Failed(ctx, q.name, limit)
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	return q.backend.Stats(ctx, q.name)
}
