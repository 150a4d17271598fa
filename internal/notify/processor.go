// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/queue"
	"github.com/ManuGH/suiteops/internal/store"
)

// DefaultRetention is how long read notifications are kept.
const DefaultRetention = 30 * 24 * time.Hour

// Processor materializes notification jobs into records.
type Processor struct {
	employees     store.EmployeeRepo
	notifications store.NotificationRepo
	retention     time.Duration
	now           func() time.Time
}

// NewProcessor returns a processor; a non-positive retention uses
// DefaultRetention.
func NewProcessor(employees store.EmployeeRepo, notifications store.NotificationRepo, retention time.Duration) *Processor {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Processor{
		employees:     employees,
		notifications: notifications,
		retention:     retention,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Register wires every notification job type into r.
func (p *Processor) Register(r *queue.Runner) {
	r.Handle(JobSend, p.Send)
	r.Handle(JobSendBulk, p.SendBulk)
	r.Handle(JobCleanup, p.Cleanup)
}

// Send creates one notification after re-checking that the recipient still
// exists and is not inactive. The record id is derived from the job id, so
// a redelivered job does not create a second record.
func (p *Processor) Send(ctx context.Context, job queue.Job) (queue.Result, error) {
	var payload NotificationJob
	if err := job.Decode(&payload); err != nil {
		return queue.Result{}, queue.Permanent(fmt.Errorf("decode send payload: %w", err))
	}
	logger := log.WithComponentFromContext(ctx, "notify")

	recipient, err := p.employees.GetEmployee(ctx, payload.RecipientID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Info().Str(log.FieldRecipientID, payload.RecipientID).Msg("notification skipped: recipient not found")
		return queue.Skip(SkipRecipientUnavailable), nil
	case err != nil:
		return queue.Result{}, fmt.Errorf("load recipient %s: %w", payload.RecipientID, err)
	case recipient.Status.IsInactive():
		logger.Info().Str(log.FieldRecipientID, payload.RecipientID).Msg("notification skipped: recipient inactive")
		return queue.Skip(SkipRecipientUnavailable), nil
	}

	rec := payload.record(payload.RecipientID)
	rec.ID = job.ID
	created, err := p.notifications.CreateNotification(ctx, rec)
	if errors.Is(err, store.ErrConflict) {
		logger.Debug().Str(log.FieldRecipientID, payload.RecipientID).Msg("notification already created by an earlier attempt")
		return queue.Result{Data: map[string]string{"notificationId": rec.ID}}, nil
	}
	if err != nil {
		return queue.Result{}, fmt.Errorf("create notification: %w", err)
	}
	metrics.AddNotificationsCreated(string(created.Type), 1)
	return queue.Result{Data: map[string]string{"notificationId": created.ID}}, nil
}

// SendBulk creates one record per recipient in a single batch. Unlike Send
// it does not re-check recipient eligibility.
func (p *Processor) SendBulk(ctx context.Context, job queue.Job) (queue.Result, error) {
	var payload BulkNotificationJob
	if err := job.Decode(&payload); err != nil {
		return queue.Result{}, queue.Permanent(fmt.Errorf("decode send-bulk payload: %w", err))
	}
	if len(payload.RecipientIDs) == 0 {
		return queue.Skip("no recipients"), nil
	}

	records := make([]model.Notification, 0, len(payload.RecipientIDs))
	for _, id := range payload.RecipientIDs {
		rec := payload.record(id)
		rec.ID = job.ID + ":" + id
		records = append(records, rec)
	}

	n, err := p.notifications.CreateNotifications(ctx, records)
	if errors.Is(err, store.ErrConflict) {
		// Batches are atomic, so a conflict means an earlier attempt
		// committed the whole batch.
		return queue.Result{Data: map[string]int{"count": len(records)}}, nil
	}
	if err != nil {
		return queue.Result{}, fmt.Errorf("create notifications: %w", err)
	}
	metrics.AddNotificationsCreated(string(payload.Type), n)
	logger := log.WithComponentFromContext(ctx, "notify")
	logger.Debug().
		Int(log.FieldRecipients, n).
		Str("type", string(payload.Type)).
		Msg("bulk notifications created")
	return queue.Result{Data: map[string]int{"count": n}}, nil
}

// Cleanup deletes read notifications older than the retention period.
func (p *Processor) Cleanup(ctx context.Context, job queue.Job) (queue.Result, error) {
	var payload CleanupJob
	if len(job.Payload) > 0 {
		if err := job.Decode(&payload); err != nil {
			return queue.Result{}, queue.Permanent(fmt.Errorf("decode cleanup payload: %w", err))
		}
	}
	retention := p.retention
	if payload.RetentionDays > 0 {
		retention = time.Duration(payload.RetentionDays) * 24 * time.Hour
	}
	cutoff := p.now().Add(-retention)

	deleted, err := p.notifications.DeleteReadNotificationsBefore(ctx, cutoff)
	if err != nil {
		return queue.Result{}, fmt.Errorf("delete read notifications: %w", err)
	}
	metrics.AddNotificationsCleaned(deleted)
	logger := log.WithComponentFromContext(ctx, "notify")
	logger.Info().
		Int("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("notification cleanup finished")
	return queue.Result{Data: map[string]int{"deleted": deleted}}, nil
}
