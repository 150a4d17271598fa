// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package service

import (
	"context"
	"fmt"

	"github.com/ManuGH/suiteops/internal/control/authz"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/store"
)

type Employees struct{ *core }

// self allows an actor to act on their own record, or on anyone's with
// manage_employees.
func self(actor *authz.Actor, employeeID string) error {
	if actor.ID == employeeID || authz.HasAny(actor.Permissions, []string{authz.PermManageEmployees}) {
		return nil
	}
	return &authz.ForbiddenError{ActorID: actor.ID, Mode: authz.ModeAny, Required: []string{authz.PermManageEmployees}}
}

func (s *Employees) ClockIn(ctx context.Context, employeeID string) (model.Employee, error) {
	actor, err := s.authorize(ctx, authz.OpEmployeeClockIn)
	if err != nil {
		return model.Employee{}, err
	}
	if err := self(actor, employeeID); err != nil {
		return model.Employee{}, err
	}
	emp, err := s.store.UpdateEmployee(ctx, employeeID, func(e *model.Employee) error {
		if e.Status.IsInactive() {
			return invalid("employee %s is inactive", employeeID)
		}
		if e.ClockedIn {
			return invalid("employee %s is already clocked in", employeeID)
		}
		e.ClockedIn = true
		e.Status = model.EmployeeActive
		return nil
	})
	if err != nil {
		return model.Employee{}, err
	}
	s.publish(ctx, events.EmployeeClockInEvent{Meta: events.NewMeta(ctx), EmployeeID: employeeID})
	return emp, nil
}

// ClockOut ends the shift. The published event carries the number of tasks
// still in progress; the handler pauses them.
func (s *Employees) ClockOut(ctx context.Context, employeeID string) (model.Employee, error) {
	actor, err := s.authorize(ctx, authz.OpEmployeeClockOut)
	if err != nil {
		return model.Employee{}, err
	}
	if err := self(actor, employeeID); err != nil {
		return model.Employee{}, err
	}
	emp, err := s.store.UpdateEmployee(ctx, employeeID, func(e *model.Employee) error {
		if !e.ClockedIn {
			return invalid("employee %s is not clocked in", employeeID)
		}
		e.ClockedIn = false
		e.Status = model.EmployeeOffDuty
		return nil
	})
	if err != nil {
		return model.Employee{}, err
	}

	active, err := s.store.ListTasks(ctx, store.TaskFilter{
		AssignedTo: employeeID,
		Statuses:   []model.TaskState{model.TaskInProgress},
	})
	if err != nil {
		return model.Employee{}, fmt.Errorf("count active tasks: %w", err)
	}
	s.log(ctx).Info().
		Str(log.FieldEmployeeID, employeeID).
		Int("active_tasks", len(active)).
		Msg("employee clocked out")
	s.publish(ctx, events.EmployeeClockOutEvent{
		Meta:            events.NewMeta(ctx),
		EmployeeID:      employeeID,
		ActiveTaskCount: len(active),
	})
	return emp, nil
}
