// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Backend stores jobs. Implementations must make Claim atomic across
// concurrent consumers, including consumers in other processes when the
// backend is shared.
type Backend interface {
	// Put stores job in the waiting state. If a job with the same id
	// already exists it is returned unchanged and created is false.
	Put(ctx context.Context, job Job) (stored Job, created bool, err error)
	// Claim moves the next due job of queue to active, increments its
	// attempt count and leases it until now+lease. Active jobs whose lease
	// expired are claimable again. Waiting jobs due at now are claimed
	// before expired leases; waiting jobs go in run_at order, expired
	// leases in lease_until order, and ties go to the lower job id.
	// ok is false when nothing is due.
	Claim(ctx context.Context, queue string, now time.Time, lease time.Duration) (job Job, ok bool, err error)
	// Complete marks an active job completed and records result.
	Complete(ctx context.Context, id string, result json.RawMessage, now time.Time) error
	// Retry returns an active job to waiting, due at runAt.
	Retry(ctx context.Context, id string, runAt time.Time, lastErr string, now time.Time) error
	// Fail marks a job permanently failed. Failed jobs are retained.
	Fail(ctx context.Context, id string, lastErr string, now time.Time) error
	Get(ctx context.Context, id string) (Job, error)
	// Failed lists retained failed jobs of queue, most recent first.
	Failed(ctx context.Context, queue string, limit int) ([]Job, error)
	Stats(ctx context.Context, queue string) (Stats, error)
	Close() error
}
