// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"slices"
	"time"

	"github.com/ManuGH/suiteops/internal/domain/model"
)

// TaskFilter selects tasks. Zero-valued fields do not constrain.
type TaskFilter struct {
	IDs        []string
	SuiteID    string
	AssignedTo string
	Types      []model.TaskType
	Statuses   []model.TaskState
	// ScheduledEndBefore selects tasks with a scheduled end strictly before it.
	ScheduledEndBefore *time.Time
	// OverdueUnnotified selects tasks that were never reported overdue.
	OverdueUnnotified bool
	Limit             int
}

// Match reports whether t satisfies f.
func (f TaskFilter) Match(t model.Task) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, t.ID) {
		return false
	}
	if f.SuiteID != "" && t.SuiteID != f.SuiteID {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, t.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if f.ScheduledEndBefore != nil && (t.ScheduledEnd == nil || !t.ScheduledEnd.Before(*f.ScheduledEndBefore)) {
		return false
	}
	if f.OverdueUnnotified && t.OverdueNotifiedAt != nil {
		return false
	}
	return true
}

// OpenCleaningTaskGuard matches open cleaning tasks for a suite.
func OpenCleaningTaskGuard(suiteID string) TaskFilter {
	return TaskFilter{
		SuiteID:  suiteID,
		Types:    []model.TaskType{model.TaskCleaning, model.TaskDeepCleaning},
		Statuses: model.OpenTaskStates(),
	}
}

// EmployeeFilter selects employees. Zero-valued fields do not constrain.
type EmployeeFilter struct {
	Roles       []model.Role
	Departments []model.Department
	// ExcludeInactive drops employees whose status is INACTIVE.
	ExcludeInactive bool
	// OnDuty keeps only ACTIVE or ON_BREAK employees.
	OnDuty bool
}

// Match reports whether e satisfies f.
func (f EmployeeFilter) Match(e model.Employee) bool {
	if len(f.Roles) > 0 && !slices.Contains(f.Roles, e.Role) {
		return false
	}
	if len(f.Departments) > 0 && !slices.Contains(f.Departments, e.Department) {
		return false
	}
	if f.ExcludeInactive && e.Status.IsInactive() {
		return false
	}
	if f.OnDuty && !e.Status.IsOnDuty() {
		return false
	}
	return true
}

// NotificationFilter selects notifications.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Limit       int
}

// Match reports whether n satisfies f.
func (f NotificationFilter) Match(n model.Notification) bool {
	if f.RecipientID != "" && n.RecipientID != f.RecipientID {
		return false
	}
	if f.UnreadOnly && n.Read {
		return false
	}
	return true
}

// NoteFilter selects notes.
type NoteFilter struct {
	SuiteID string
	Type    model.NoteType
	// FollowUpBefore selects notes with a follow-up time strictly before it.
	FollowUpBefore *time.Time
}

// Match reports whether n satisfies f.
func (f NoteFilter) Match(n model.Note) bool {
	if f.SuiteID != "" && n.SuiteID != f.SuiteID {
		return false
	}
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.FollowUpBefore != nil && (n.FollowUpAt == nil || !n.FollowUpAt.Before(*f.FollowUpBefore)) {
		return false
	}
	return true
}
