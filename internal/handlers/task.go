// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/lifecycle"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/notify"
	"github.com/ManuGH/suiteops/internal/store"
)

func (h *Handlers) TaskCreated(ctx context.Context, e events.TaskCreatedEvent) error {
	h.log(ctx).Info().
		Str(log.FieldTaskID, e.TaskID).
		Str(log.FieldSuiteID, e.SuiteID).
		Str(log.FieldTaskType, string(e.Type)).
		Str(log.FieldTaskPriority, string(e.Priority)).
		Str(log.FieldActorID, e.CreatedBy).
		Msg("task created")
	return nil
}

// TaskAssigned tells the new assignee about the task.
func (h *Handlers) TaskAssigned(ctx context.Context, e events.TaskAssignedEvent) error {
	task, err := h.deps.Tasks.GetTask(ctx, e.TaskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", e.TaskID, err)
	}
	_, err = h.deps.Notifier.Send(ctx, notify.NotificationJob{
		RecipientID: e.AssignedTo,
		Content: notify.Content{
			Type:              model.NotifyTaskAssigned,
			Title:             "New task assigned",
			Message:           "You have been assigned: " + task.Title,
			Priority:          task.Priority,
			RelatedEntityType: model.EntityTask,
			RelatedEntityID:   task.ID,
			ActionURL:         "/tasks/" + task.ID,
		},
	})
	if err != nil {
		return fmt.Errorf("notify assignee %s: %w", e.AssignedTo, err)
	}
	return nil
}

func (h *Handlers) TaskStatusChanged(ctx context.Context, e events.TaskStatusChangedEvent) error {
	h.log(ctx).Info().
		Str(log.FieldTaskID, e.TaskID).
		Str(log.FieldOldState, string(e.PreviousStatus)).
		Str(log.FieldNewState, string(e.NewStatus)).
		Str(log.FieldActorID, e.ActorID).
		Msg("task status changed")
	return nil
}

// TaskCompleted moves the suite along once its cleaning or maintenance
// task is done and credits the employee who finished it.
func (h *Handlers) TaskCompleted(ctx context.Context, e events.TaskCompletedEvent) error {
	var errs []error
	if e.SuiteID != "" {
		errs = append(errs, h.applyCompletionToSuite(ctx, e))
	}
	if e.CompletedBy != "" {
		_, err := h.deps.Employees.UpdateEmployee(ctx, e.CompletedBy, func(emp *model.Employee) error {
			emp.TasksCompleted++
			return nil
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, fmt.Errorf("credit employee %s: %w", e.CompletedBy, err))
		}
	}
	return errors.Join(errs...)
}

func (h *Handlers) applyCompletionToSuite(ctx context.Context, e events.TaskCompletedEvent) error {
	var from, to model.SuiteState
	now := h.deps.Now()
	_, err := h.deps.Suites.UpdateSuite(ctx, e.SuiteID, func(s *model.Suite) error {
		from = s.Status
		next, ok := lifecycle.StatusAfterTaskCompletion(s.Status, e.Type)
		if ok {
			if err := h.suites.AssertValid(s.Status, next, lifecycle.CompletionFacts(e.Type)); err != nil {
				return err
			}
			s.Status = next
		}
		if e.Type.IsCleaning() {
			s.LastCleanedAt = &now
		} else if !ok {
			return errNoChange
		}
		to = s.Status
		return nil
	})
	if err = ignoreNoChange(err); err != nil {
		return fmt.Errorf("apply completion to suite %s: %w", e.SuiteID, err)
	}
	if to == "" || to == from {
		return nil
	}

	metrics.RecordTransition(h.suites.Entity(), string(from), string(to))
	h.log(ctx).Info().
		Str(log.FieldSuiteID, e.SuiteID).
		Str(log.FieldTaskID, e.TaskID).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Msg("suite status updated after task completion")
	h.publish(ctx, events.SuiteStatusChangedEvent{
		Meta:           events.NewMeta(ctx),
		SuiteID:        e.SuiteID,
		PreviousStatus: from,
		NewStatus:      to,
		ActorID:        e.CompletedBy,
		Reason:         fmt.Sprintf("%s task %s completed", e.Type, e.TaskID),
	})
	return nil
}

// TaskVerified tells the employee who completed the task.
func (h *Handlers) TaskVerified(ctx context.Context, e events.TaskVerifiedEvent) error {
	if e.CompletedBy == "" {
		return nil
	}
	_, err := h.deps.Notifier.Send(ctx, notify.NotificationJob{
		RecipientID: e.CompletedBy,
		Content: notify.Content{
			Type:              model.NotifyTaskVerified,
			Title:             "Task verified",
			Message:           "Your completed task has been verified",
			RelatedEntityType: model.EntityTask,
			RelatedEntityID:   e.TaskID,
			ActionURL:         "/tasks/" + e.TaskID,
		},
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", e.CompletedBy, err)
	}
	return nil
}

// TaskEmergencyCreated alerts every supervisor, manager and admin.
func (h *Handlers) TaskEmergencyCreated(ctx context.Context, e events.TaskEmergencyCreatedEvent) error {
	staff, err := h.deps.Employees.ListEmployees(ctx, store.EmployeeFilter{
		Roles:           []model.Role{model.RoleSupervisor, model.RoleManager, model.RoleAdmin},
		ExcludeInactive: true,
	})
	if err != nil {
		return fmt.Errorf("list supervisors: %w", err)
	}
	return h.sendEach(ctx, staffIDs(staff), notify.Content{
		Type:              model.NotifyEmergencyTask,
		Title:             "Emergency task",
		Message:           e.Title,
		Priority:          model.PriorityEmergency,
		RelatedEntityType: model.EntityTask,
		RelatedEntityID:   e.TaskID,
		ActionURL:         "/tasks/" + e.TaskID,
		ActionRequired:    true,
	})
}

// TaskOverdue notifies the assignee and the on-duty supervisors in one bulk
// job, then marks the task so the sweeper does not report it again.
func (h *Handlers) TaskOverdue(ctx context.Context, e events.TaskOverdueEvent) error {
	staff, err := h.deps.Employees.ListEmployees(ctx, store.EmployeeFilter{
		Roles:  []model.Role{model.RoleSupervisor, model.RoleManager},
		OnDuty: true,
	})
	if err != nil {
		return fmt.Errorf("list on-duty supervisors: %w", err)
	}
	recipients := staffIDs(staff)
	if e.AssignedTo != "" {
		recipients = append([]string{e.AssignedTo}, recipients...)
	}

	if len(recipients) > 0 {
		_, err = h.deps.Notifier.SendBulk(ctx, notify.BulkNotificationJob{
			RecipientIDs: recipients,
			Content: notify.Content{
				Type:              model.NotifyTaskOverdue,
				Title:             "Task overdue",
				Message:           "Task was due at " + e.ScheduledEnd.Format("15:04"),
				Priority:          model.PriorityHigh,
				RelatedEntityType: model.EntityTask,
				RelatedEntityID:   e.TaskID,
				ActionURL:         "/tasks/" + e.TaskID,
			},
		})
		if err != nil {
			return fmt.Errorf("notify overdue task %s: %w", e.TaskID, err)
		}
	}

	now := h.deps.Now()
	_, err = h.deps.Tasks.UpdateTask(ctx, e.TaskID, func(t *model.Task) error {
		if t.OverdueNotifiedAt != nil {
			return errNoChange
		}
		t.OverdueNotifiedAt = &now
		return nil
	})
	if err = ignoreNoChange(err); err != nil {
		return fmt.Errorf("mark task %s overdue-notified: %w", e.TaskID, err)
	}
	return nil
}
