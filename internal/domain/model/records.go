// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "time"

// Guest holds the current occupant data of a suite.
type Guest struct {
	Name        string     `json:"name"`
	CheckInAt   *time.Time `json:"checkInAt,omitempty"`
	CheckOutAt  *time.Time `json:"checkOutAt,omitempty"`
	Reservation string     `json:"reservation,omitempty"`
	GuestCount  int        `json:"guestCount,omitempty"`
}

type Suite struct {
	ID            string     `json:"id"`
	Number        string     `json:"number"`
	Status        SuiteState `json:"status"`
	Guest         *Guest     `json:"guest,omitempty"`
	LastCleanedAt *time.Time `json:"lastCleanedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Task struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Type              TaskType   `json:"type"`
	Priority          Priority   `json:"priority"`
	Status            TaskState  `json:"status"`
	SuiteID           string     `json:"suiteId,omitempty"`
	AssignedTo        string     `json:"assignedTo,omitempty"`
	CreatedBy         string     `json:"createdBy,omitempty"`
	ScheduledStart    *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd      *time.Time `json:"scheduledEnd,omitempty"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CompletedBy       string     `json:"completedBy,omitempty"`
	VerifiedBy        string     `json:"verifiedBy,omitempty"`
	OverdueNotifiedAt *time.Time `json:"overdueNotifiedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type Employee struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Role           Role           `json:"role"`
	Department     Department     `json:"department"`
	Status         EmployeeStatus `json:"status"`
	ClockedIn      bool           `json:"clockedIn"`
	TasksCompleted int            `json:"tasksCompleted"`
}

type Note struct {
	ID         string     `json:"id"`
	Type       NoteType   `json:"type"`
	Content    string     `json:"content"`
	SuiteID    string     `json:"suiteId,omitempty"`
	TaskID     string     `json:"taskId,omitempty"`
	AuthorID   string     `json:"authorId"`
	AssignedTo string     `json:"assignedTo,omitempty"`
	FollowUpAt *time.Time `json:"followUpAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Notification is a materialized, per-recipient notification record.
type Notification struct {
	ID                string           `json:"id"`
	RecipientID       string           `json:"recipientId"`
	Type              NotificationType `json:"type"`
	Title             string           `json:"title"`
	Message           string           `json:"message"`
	Priority          Priority         `json:"priority"`
	RelatedEntityType string           `json:"relatedEntityType,omitempty"`
	RelatedEntityID   string           `json:"relatedEntityId,omitempty"`
	ActionURL         string           `json:"actionUrl,omitempty"`
	ActionRequired    bool             `json:"actionRequired"`
	Read              bool             `json:"read"`
	ReadAt            *time.Time       `json:"readAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}
