// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package queue is a durable, multi-consumer job queue with at-least-once
// delivery, per-attempt timeouts and capped retries.
package queue

import (
	"encoding/json"
	"errors"
	"time"
)

// State is the lifecycle position of a job.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

var (
	// ErrJobNotFound is returned by Backend.Get for unknown ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrUnknownJobType marks jobs no processor is registered for.
	ErrUnknownJobType = errors.New("unknown job type")
)

// Job is one unit of queued work.
type Job struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	Backoff     Backoff         `json:"backoff"`
	State       State           `json:"state"`
	RunAt       time.Time       `json:"runAt"`
	LeaseUntil  *time.Time      `json:"leaseUntil,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Decode unmarshals the job payload into v.
func (j Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// Exhausted reports whether no further attempt may be made.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// Result is what a processor reports for a finished attempt. A skipped
// result completes the job without retrying it.
type Result struct {
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Skip builds a skipped result.
func Skip(reason string) Result {
	return Result{Skipped: true, Reason: reason}
}

// Stats counts jobs per state for one queue.
type Stats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
