// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/suiteops/internal/control/authz"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/lifecycle"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
)

type Tasks struct{ *core }

// NewTask is the input to Tasks.Create.
type NewTask struct {
	Title          string
	Description    string
	Type           model.TaskType
	Priority       model.Priority
	SuiteID        string
	AssignedTo     string
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
}

func (in NewTask) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title is required")
	}
	if in.ScheduledStart != nil && in.ScheduledEnd != nil && in.ScheduledEnd.Before(*in.ScheduledStart) {
		return invalid("scheduled end before scheduled start")
	}
	return nil
}

// Create persists a task. A task created with an assignee starts ASSIGNED.
func (s *Tasks) Create(ctx context.Context, in NewTask) (model.Task, error) {
	actor, err := s.authorize(ctx, authz.OpTaskCreate)
	if err != nil {
		return model.Task{}, err
	}
	if err := in.validate(); err != nil {
		return model.Task{}, err
	}
	if in.Type == "" {
		in.Type = model.TaskOther
	}
	if in.Priority == "" {
		in.Priority = model.PriorityNormal
	}
	status := model.TaskPending
	if in.AssignedTo != "" {
		if err := s.assignable(ctx, in.AssignedTo); err != nil {
			return model.Task{}, err
		}
		if err := s.tasks.AssertValid(model.TaskPending, model.TaskAssigned, lifecycle.Facts{lifecycle.FactAssignedTo: in.AssignedTo}); err != nil {
			return model.Task{}, rejected(err)
		}
		status = model.TaskAssigned
	}

	task, err := s.store.CreateTask(ctx, model.Task{
		Title:          in.Title,
		Description:    in.Description,
		Type:           in.Type,
		Priority:       in.Priority,
		Status:         status,
		SuiteID:        in.SuiteID,
		AssignedTo:     in.AssignedTo,
		CreatedBy:      actor.ID,
		ScheduledStart: in.ScheduledStart,
		ScheduledEnd:   in.ScheduledEnd,
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}

	evs := []events.Event{events.TaskCreatedEvent{
		Meta:       events.NewMeta(ctx),
		TaskID:     task.ID,
		SuiteID:    task.SuiteID,
		Type:       task.Type,
		Priority:   task.Priority,
		AssignedTo: task.AssignedTo,
		CreatedBy:  actor.ID,
	}}
	if task.Priority == model.PriorityEmergency {
		evs = append(evs, events.TaskEmergencyCreatedEvent{
			Meta:      events.NewMeta(ctx),
			TaskID:    task.ID,
			SuiteID:   task.SuiteID,
			Title:     task.Title,
			CreatedBy: actor.ID,
		})
	}
	if task.AssignedTo != "" {
		evs = append(evs, events.TaskAssignedEvent{
			Meta:       events.NewMeta(ctx),
			TaskID:     task.ID,
			AssignedTo: task.AssignedTo,
			AssignedBy: actor.ID,
		})
	}
	s.publish(ctx, evs...)
	return task, nil
}

func (s *Tasks) assignable(ctx context.Context, employeeID string) error {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("assignee: %w", err)
	}
	if emp.Status.IsInactive() {
		return invalid("employee %s is inactive", employeeID)
	}
	return nil
}

// Assign gives the task to an employee. Pending tasks move to ASSIGNED;
// tasks already underway keep their status and change hands.
func (s *Tasks) Assign(ctx context.Context, taskID, employeeID string) (model.Task, error) {
	actor, err := s.authorize(ctx, authz.OpTaskAssign)
	if err != nil {
		return model.Task{}, err
	}
	if employeeID == "" {
		return model.Task{}, invalid("employee id is required")
	}
	if err := s.assignable(ctx, employeeID); err != nil {
		return model.Task{}, err
	}

	var previous string
	var from model.TaskState
	task, err := s.store.UpdateTask(ctx, taskID, func(t *model.Task) error {
		previous, from = t.AssignedTo, t.Status
		switch t.Status {
		case model.TaskPending:
			facts := lifecycle.Facts{lifecycle.FactAssignedTo: employeeID}
			if err := s.tasks.AssertValid(t.Status, model.TaskAssigned, facts); err != nil {
				return err
			}
			t.Status = model.TaskAssigned
		case model.TaskAssigned, model.TaskInProgress, model.TaskPaused:
		default:
			return invalid("task %s is %s and cannot be reassigned", t.ID, t.Status)
		}
		t.AssignedTo = employeeID
		return nil
	})
	if err != nil {
		return model.Task{}, rejected(err)
	}

	if from != task.Status {
		metrics.RecordTransition(s.tasks.Entity(), string(from), string(task.Status))
	}
	s.log(ctx).Info().
		Str(log.FieldTaskID, taskID).
		Str(log.FieldEmployeeID, employeeID).
		Str(log.FieldActorID, actor.ID).
		Msg("task assigned")
	evs := []events.Event{events.TaskAssignedEvent{
		Meta:             events.NewMeta(ctx),
		TaskID:           taskID,
		AssignedTo:       employeeID,
		PreviousAssignee: previous,
		AssignedBy:       actor.ID,
	}}
	if from != task.Status {
		evs = append(evs, events.TaskStatusChangedEvent{
			Meta:           events.NewMeta(ctx),
			TaskID:         taskID,
			PreviousStatus: from,
			NewStatus:      task.Status,
			ActorID:        actor.ID,
		})
	}
	s.publish(ctx, evs...)
	return task, nil
}

// ChangeStatus moves a task through its lifecycle. Actors without
// view_all_tasks may only move tasks assigned to them. Verification needs
// the verify operation's permissions.
func (s *Tasks) ChangeStatus(ctx context.Context, taskID string, to model.TaskState) (model.Task, error) {
	op := authz.OpTaskChangeStatus
	if to == model.TaskVerified {
		op = authz.OpTaskVerify
	}
	actor, err := s.authorize(ctx, op)
	if err != nil {
		return model.Task{}, err
	}
	seesAll := authz.HasAny(actor.Permissions, []string{authz.PermViewAllTasks})

	now := s.now()
	var from model.TaskState
	var unchanged model.Task
	task, err := s.store.UpdateTask(ctx, taskID, func(t *model.Task) error {
		if !seesAll && t.AssignedTo != actor.ID {
			return &authz.ForbiddenError{ActorID: actor.ID, Mode: authz.ModeAny, Required: []string{authz.PermViewAllTasks}}
		}
		from = t.Status
		facts := lifecycle.Facts{
			lifecycle.FactAssignedTo: t.AssignedTo,
			lifecycle.FactVerifiedBy: actor.ID,
		}
		if err := s.tasks.AssertValid(t.Status, to, facts); err != nil {
			return err
		}
		if t.Status == to {
			unchanged = *t
			return errUnchanged
		}
		t.Status = to
		switch to {
		case model.TaskInProgress:
			if t.StartedAt == nil {
				t.StartedAt = &now
			}
			t.CompletedAt, t.CompletedBy = nil, ""
		case model.TaskCompleted:
			t.CompletedAt = &now
			t.CompletedBy = actor.ID
		case model.TaskVerified:
			t.VerifiedBy = actor.ID
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return unchanged, nil
	}
	if err != nil {
		return model.Task{}, rejected(err)
	}

	metrics.RecordTransition(s.tasks.Entity(), string(from), string(to))
	s.log(ctx).Info().
		Str(log.FieldTaskID, taskID).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Str(log.FieldActorID, actor.ID).
		Msg("task status changed")

	evs := []events.Event{events.TaskStatusChangedEvent{
		Meta:           events.NewMeta(ctx),
		TaskID:         taskID,
		PreviousStatus: from,
		NewStatus:      to,
		ActorID:        actor.ID,
	}}
	switch to {
	case model.TaskCompleted:
		evs = append(evs, events.TaskCompletedEvent{
			Meta:        events.NewMeta(ctx),
			TaskID:      taskID,
			SuiteID:     task.SuiteID,
			Type:        task.Type,
			CompletedBy: actor.ID,
		})
	case model.TaskVerified:
		evs = append(evs, events.TaskVerifiedEvent{
			Meta:        events.NewMeta(ctx),
			TaskID:      taskID,
			VerifiedBy:  actor.ID,
			CompletedBy: task.CompletedBy,
		})
	}
	s.publish(ctx, evs...)
	return task, nil
}
