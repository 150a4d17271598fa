// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/suiteops/internal/queue"
)

// Enqueuer is the producer side of a queue.
type Enqueuer interface {
	Add(ctx context.Context, jobType string, payload any, opts ...queue.Option) (queue.Job, error)
}

// Producer enqueues notification jobs.
type Producer struct {
	q Enqueuer
}

func NewProducer(q Enqueuer) *Producer {
	return &Producer{q: q}
}

// Send enqueues a single-recipient notification. Recipient eligibility is
// checked when the job is processed, not here.
func (p *Producer) Send(ctx context.Context, job NotificationJob, opts ...queue.Option) (queue.Job, error) {
	if strings.TrimSpace(job.RecipientID) == "" {
		return queue.Job{}, fmt.Errorf("%w: recipientId is required", ErrInvalidJob)
	}
	if err := job.validate(); err != nil {
		return queue.Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return p.q.Add(ctx, JobSend, job, opts...)
}

// SendBulk enqueues one job that notifies every recipient.
func (p *Producer) SendBulk(ctx context.Context, job BulkNotificationJob, opts ...queue.Option) (queue.Job, error) {
	ids := dedupe(job.RecipientIDs)
	if len(ids) == 0 {
		return queue.Job{}, fmt.Errorf("%w: at least one recipient is required", ErrInvalidJob)
	}
	if err := job.validate(); err != nil {
		return queue.Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	job.RecipientIDs = ids
	return p.q.Add(ctx, JobSendBulk, job, opts...)
}

// Cleanup enqueues an immediate cleanup run.
func (p *Producer) Cleanup(ctx context.Context, job CleanupJob, opts ...queue.Option) (queue.Job, error) {
	return p.q.Add(ctx, JobCleanup, job, opts...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
