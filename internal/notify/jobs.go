// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package notify turns "decide to notify" into queued jobs and turns those
// jobs into stored notification records.
package notify

import (
	"errors"
	"strings"

	"github.com/ManuGH/suiteops/internal/domain/model"
)

// QueueName is the queue all notification jobs travel on.
const QueueName = "notifications"

// Job types.
const (
	JobSend     = "send"
	JobSendBulk = "send-bulk"
	JobCleanup  = "cleanup"
)

// SkipRecipientUnavailable is the skip reason when a send job's recipient
// no longer exists or has been deactivated.
const SkipRecipientUnavailable = "Recipient inactive or not found"

// ErrInvalidJob is returned for jobs that fail validation at enqueue time.
var ErrInvalidJob = errors.New("invalid notification job")

// Content is what every recipient of a notification sees.
type Content struct {
	Type              model.NotificationType `json:"type"`
	Title             string                 `json:"title"`
	Message           string                 `json:"message"`
	Priority          model.Priority         `json:"priority,omitempty"`
	RelatedEntityType string                 `json:"relatedEntityType,omitempty"`
	RelatedEntityID   string                 `json:"relatedEntityId,omitempty"`
	ActionURL         string                 `json:"actionUrl,omitempty"`
	ActionRequired    bool                   `json:"actionRequired,omitempty"`
}

// NotificationJob targets a single recipient.
type NotificationJob struct {
	RecipientID string `json:"recipientId"`
	Content
}

// BulkNotificationJob targets several recipients with identical content.
type BulkNotificationJob struct {
	RecipientIDs []string `json:"recipientIds"`
	Content
}

// CleanupJob deletes read notifications older than the retention period.
// A zero RetentionDays uses the processor default.
type CleanupJob struct {
	RetentionDays int `json:"retentionDays,omitempty"`
}

func (c Content) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("title is required")
	}
	if c.Type == "" {
		return errors.New("type is required")
	}
	return nil
}

func (c Content) record(recipientID string) model.Notification {
	priority := c.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	return model.Notification{
		RecipientID:       recipientID,
		Type:              c.Type,
		Title:             c.Title,
		Message:           c.Message,
		Priority:          priority,
		RelatedEntityType: c.RelatedEntityType,
		RelatedEntityID:   c.RelatedEntityID,
		ActionURL:         c.ActionURL,
		ActionRequired:    c.ActionRequired,
	}
}
