// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package events defines the immutable domain events published after a
// confirmed state change or business action.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
)

// Event is implemented by every domain event.
type Event interface {
	Name() Name
	Metadata() Meta
}

// Meta is common to all events.
type Meta struct {
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

func (m Meta) Metadata() Meta { return m }

// NewMeta stamps the current time and reuses the correlation id carried by
// ctx, minting one when absent.
func NewMeta(ctx context.Context) Meta {
	cid := log.CorrelationIDFromContext(ctx)
	if cid == "" {
		cid = uuid.NewString()
	}
	return Meta{OccurredAt: time.Now().UTC(), CorrelationID: cid}
}

type SuiteStatusChangedEvent struct {
	Meta
	SuiteID        string           `json:"suiteId"`
	PreviousStatus model.SuiteState `json:"previousStatus"`
	NewStatus      model.SuiteState `json:"newStatus"`
	ActorID        string           `json:"actorId,omitempty"`
	Reason         string           `json:"reason,omitempty"`
}

func (SuiteStatusChangedEvent) Name() Name { return SuiteStatusChanged }

type SuiteCheckedInEvent struct {
	Meta
	SuiteID string      `json:"suiteId"`
	Guest   model.Guest `json:"guest"`
	ActorID string      `json:"actorId,omitempty"`
}

func (SuiteCheckedInEvent) Name() Name { return SuiteCheckedIn }

type SuiteCheckedOutEvent struct {
	Meta
	SuiteID        string           `json:"suiteId"`
	PreviousStatus model.SuiteState `json:"previousStatus"`
	ActorID        string           `json:"actorId,omitempty"`
}

func (SuiteCheckedOutEvent) Name() Name { return SuiteCheckedOut }

type SuiteOutOfOrderEvent struct {
	Meta
	SuiteID string `json:"suiteId"`
	Reason  string `json:"reason"`
	ActorID string `json:"actorId,omitempty"`
}

func (SuiteOutOfOrderEvent) Name() Name { return SuiteOutOfOrder }

type TaskCreatedEvent struct {
	Meta
	TaskID     string         `json:"taskId"`
	SuiteID    string         `json:"suiteId,omitempty"`
	Type       model.TaskType `json:"type"`
	Priority   model.Priority `json:"priority"`
	AssignedTo string         `json:"assignedTo,omitempty"`
	CreatedBy  string         `json:"createdBy,omitempty"`
}

func (TaskCreatedEvent) Name() Name { return TaskCreated }

type TaskAssignedEvent struct {
	Meta
	TaskID           string `json:"taskId"`
	AssignedTo       string `json:"assignedTo"`
	PreviousAssignee string `json:"previousAssignee,omitempty"`
	AssignedBy       string `json:"assignedBy,omitempty"`
}

func (TaskAssignedEvent) Name() Name { return TaskAssigned }

type TaskStatusChangedEvent struct {
	Meta
	TaskID         string          `json:"taskId"`
	PreviousStatus model.TaskState `json:"previousStatus"`
	NewStatus      model.TaskState `json:"newStatus"`
	ActorID        string          `json:"actorId,omitempty"`
}

func (TaskStatusChangedEvent) Name() Name { return TaskStatusChanged }

type TaskCompletedEvent struct {
	Meta
	TaskID      string         `json:"taskId"`
	SuiteID     string         `json:"suiteId,omitempty"`
	Type        model.TaskType `json:"type"`
	CompletedBy string         `json:"completedBy,omitempty"`
}

func (TaskCompletedEvent) Name() Name { return TaskCompleted }

type TaskVerifiedEvent struct {
	Meta
	TaskID      string `json:"taskId"`
	VerifiedBy  string `json:"verifiedBy"`
	CompletedBy string `json:"completedBy,omitempty"`
}

func (TaskVerifiedEvent) Name() Name { return TaskVerified }

type TaskEmergencyCreatedEvent struct {
	Meta
	TaskID    string `json:"taskId"`
	SuiteID   string `json:"suiteId,omitempty"`
	Title     string `json:"title"`
	CreatedBy string `json:"createdBy,omitempty"`
}

func (TaskEmergencyCreatedEvent) Name() Name { return TaskEmergencyCreated }

type TaskOverdueEvent struct {
	Meta
	TaskID       string    `json:"taskId"`
	AssignedTo   string    `json:"assignedTo,omitempty"`
	ScheduledEnd time.Time `json:"scheduledEnd"`
}

func (TaskOverdueEvent) Name() Name { return TaskOverdue }

type EmployeeClockInEvent struct {
	Meta
	EmployeeID string `json:"employeeId"`
}

func (EmployeeClockInEvent) Name() Name { return EmployeeClockIn }

type EmployeeClockOutEvent struct {
	Meta
	EmployeeID      string `json:"employeeId"`
	ActiveTaskCount int    `json:"activeTaskCount"`
}

func (EmployeeClockOutEvent) Name() Name { return EmployeeClockOut }

type NoteIncidentCreatedEvent struct {
	Meta
	NoteID   string `json:"noteId"`
	SuiteID  string `json:"suiteId,omitempty"`
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

func (NoteIncidentCreatedEvent) Name() Name { return NoteIncidentCreated }

type NoteFollowUpDueEvent struct {
	Meta
	NoteID     string `json:"noteId"`
	SuiteID    string `json:"suiteId,omitempty"`
	AssignedTo string `json:"assignedTo,omitempty"`
	Content    string `json:"content"`
}

func (NoteFollowUpDueEvent) Name() Name { return NoteFollowUpDue }
