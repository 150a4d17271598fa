// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package handlers

import (
	"context"
	"fmt"

	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/notify"
	"github.com/ManuGH/suiteops/internal/store"
)

func (h *Handlers) EmployeeClockIn(ctx context.Context, e events.EmployeeClockInEvent) error {
	h.log(ctx).Info().Str(log.FieldEmployeeID, e.EmployeeID).Msg("employee clocked in")
	return nil
}

// EmployeeClockOut pauses the employee's in-progress tasks and tells the
// on-duty supervisors how many were paused.
func (h *Handlers) EmployeeClockOut(ctx context.Context, e events.EmployeeClockOutEvent) error {
	paused, err := h.deps.Tasks.UpdateTasks(ctx, store.TaskFilter{
		AssignedTo: e.EmployeeID,
		Statuses:   []model.TaskState{model.TaskInProgress},
	}, func(t *model.Task) error {
		if err := h.tasks.AssertValid(t.Status, model.TaskPaused, nil); err != nil {
			return err
		}
		t.Status = model.TaskPaused
		return nil
	})
	if err != nil {
		return fmt.Errorf("pause tasks of %s: %w", e.EmployeeID, err)
	}
	h.log(ctx).Info().
		Str(log.FieldEmployeeID, e.EmployeeID).
		Int("paused", paused).
		Msg("employee clocked out")
	if paused == 0 {
		return nil
	}

	staff, err := h.deps.Employees.ListEmployees(ctx, store.EmployeeFilter{
		Roles:  []model.Role{model.RoleSupervisor, model.RoleManager},
		OnDuty: true,
	})
	if err != nil {
		return fmt.Errorf("list on-duty supervisors: %w", err)
	}
	if len(staff) == 0 {
		return nil
	}

	name := e.EmployeeID
	if emp, err := h.deps.Employees.GetEmployee(ctx, e.EmployeeID); err == nil && emp.Name != "" {
		name = emp.Name
	}
	_, err = h.deps.Notifier.SendBulk(ctx, notify.BulkNotificationJob{
		RecipientIDs: staffIDs(staff),
		Content: notify.Content{
			Type:              model.NotifyTasksPaused,
			Title:             "Tasks paused",
			Message:           fmt.Sprintf("%s clocked out; %d task(s) paused", name, paused),
			RelatedEntityType: model.EntityEmployee,
			RelatedEntityID:   e.EmployeeID,
		},
	})
	if err != nil {
		return fmt.Errorf("notify paused tasks of %s: %w", e.EmployeeID, err)
	}
	return nil
}
