// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"time"

	"github.com/ManuGH/suiteops/internal/domain/model"
)

// TaskEngine governs task status changes.
type TaskEngine = Engine[model.TaskState]

func taskRules() []Rule[model.TaskState] {
	const (
		pe = model.TaskPending
		as = model.TaskAssigned
		ip = model.TaskInProgress
		pa = model.TaskPaused
		co = model.TaskCompleted
		ve = model.TaskVerified
		ca = model.TaskCancelled
	)
	return []Rule[model.TaskState]{
		{From: []model.TaskState{pe}, To: as, Requires: []string{FactAssignedTo}, Description: "Task assigned"},
		{From: []model.TaskState{as}, To: pe, Description: "Task unassigned"},
		{From: []model.TaskState{as, pa}, To: ip, Description: "Work started"},
		{From: []model.TaskState{ip}, To: pa, Description: "Work paused"},
		{From: []model.TaskState{ip}, To: co, Description: "Work completed"},
		{From: []model.TaskState{co}, To: ve, Requires: []string{FactVerifiedBy}, Description: "Completion verified"},
		{From: []model.TaskState{co}, To: ip, Description: "Rework required"},
		{From: []model.TaskState{pe, as, ip, pa}, To: ca, Description: "Task cancelled"},
	}
}

var taskFactReasons = map[string]string{
	FactAssignedTo: "Task must be assigned to an employee",
	FactVerifiedBy: "Verifying employee is required",
}

// NewTaskEngine builds the task state machine.
func NewTaskEngine() *TaskEngine {
	return NewEngine("task", taskRules(), taskFactReasons)
}

// IsActive is true while work is underway or paused.
func IsActive(s model.TaskState) bool {
	return s == model.TaskInProgress || s == model.TaskPaused
}

func IsCompleted(s model.TaskState) bool {
	return s == model.TaskCompleted || s == model.TaskVerified
}

// IsActionable is true for any state in which someone may still work the task.
func IsActionable(s model.TaskState) bool {
	switch s {
	case model.TaskPending, model.TaskAssigned, model.TaskInProgress, model.TaskPaused:
		return true
	}
	return false
}

// PriorityWeight maps priorities onto a total order, LOW=1 .. EMERGENCY=5.
// Unknown priorities weigh 0.
func PriorityWeight(p model.Priority) int {
	switch p {
	case model.PriorityLow:
		return 1
	case model.PriorityNormal:
		return 2
	case model.PriorityHigh:
		return 3
	case model.PriorityUrgent:
		return 4
	case model.PriorityEmergency:
		return 5
	}
	return 0
}

// IsOverdue is true when the scheduled end lies before now and the task is
// not completed. A task without a scheduled end is never overdue.
func IsOverdue(scheduledEnd *time.Time, status model.TaskState, now time.Time) bool {
	if scheduledEnd == nil || IsCompleted(status) {
		return false
	}
	return scheduledEnd.Before(now)
}
