// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/notify"
	"github.com/ManuGH/suiteops/internal/store"
)

// SuiteStatusChanged creates a cleaning task when a suite becomes dirty,
// unless an open cleaning task already exists for it.
func (h *Handlers) SuiteStatusChanged(ctx context.Context, e events.SuiteStatusChangedEvent) error {
	if !e.NewStatus.IsDirty() {
		return nil
	}
	suite, err := h.deps.Suites.GetSuite(ctx, e.SuiteID)
	if err != nil {
		return fmt.Errorf("load suite %s: %w", e.SuiteID, err)
	}

	priority := model.PriorityNormal
	if e.NewStatus == model.SuiteOccupiedDirty {
		priority = model.PriorityHigh
	}
	task := model.Task{
		Title:       "Clean suite " + suite.Number,
		Description: fmt.Sprintf("Suite changed from %s to %s", e.PreviousStatus, e.NewStatus),
		Type:        model.TaskCleaning,
		Priority:    priority,
		Status:      model.TaskPending,
		SuiteID:     suite.ID,
		CreatedBy:   e.ActorID,
	}
	created, isNew, err := h.deps.Tasks.CreateTaskUnless(ctx, task, store.OpenCleaningTaskGuard(suite.ID))
	if err != nil {
		metrics.RecordAutoTask(string(events.SuiteStatusChanged), "error")
		return fmt.Errorf("create cleaning task for suite %s: %w", suite.ID, err)
	}
	if !isNew {
		metrics.RecordAutoTask(string(events.SuiteStatusChanged), "exists")
		h.log(ctx).Debug().
			Str(log.FieldSuiteID, suite.ID).
			Str(log.FieldTaskID, created.ID).
			Msg("open cleaning task already exists")
		return nil
	}

	metrics.RecordAutoTask(string(events.SuiteStatusChanged), "created")
	h.log(ctx).Info().
		Str(log.FieldSuiteID, suite.ID).
		Str(log.FieldTaskID, created.ID).
		Str(log.FieldNewState, string(e.NewStatus)).
		Msg("auto-created cleaning task")
	h.publishTaskCreated(ctx, created)
	return nil
}

// SuiteCheckedIn stores the guest on the suite. The status change itself is
// made by whoever checked the guest in.
func (h *Handlers) SuiteCheckedIn(ctx context.Context, e events.SuiteCheckedInEvent) error {
	guest := e.Guest
	if guest.CheckInAt == nil {
		now := h.deps.Now()
		guest.CheckInAt = &now
	}
	_, err := h.deps.Suites.UpdateSuite(ctx, e.SuiteID, func(s *model.Suite) error {
		s.Guest = &guest
		return nil
	})
	if err != nil {
		return fmt.Errorf("record guest on suite %s: %w", e.SuiteID, err)
	}
	h.log(ctx).Info().
		Str(log.FieldSuiteID, e.SuiteID).
		Str(log.FieldActorID, e.ActorID).
		Int("guest_count", guest.GuestCount).
		Msg("guest checked in")
	return nil
}

// SuiteCheckedOut forces the suite to VACANT_DIRTY, clears the guest and
// always creates a high-priority checkout cleaning task.
func (h *Handlers) SuiteCheckedOut(ctx context.Context, e events.SuiteCheckedOutEvent) error {
	suite, err := h.deps.Suites.UpdateSuite(ctx, e.SuiteID, func(s *model.Suite) error {
		s.Status = model.SuiteVacantDirty
		s.Guest = nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("check out suite %s: %w", e.SuiteID, err)
	}

	task, err := h.deps.Tasks.CreateTask(ctx, model.Task{
		Title:       "Checkout cleaning - Suite " + suite.Number,
		Description: "Guest checked out",
		Type:        model.TaskCleaning,
		Priority:    model.PriorityHigh,
		Status:      model.TaskPending,
		SuiteID:     suite.ID,
		CreatedBy:   e.ActorID,
	})
	if err != nil {
		metrics.RecordAutoTask(string(events.SuiteCheckedOut), "error")
		return fmt.Errorf("create checkout task for suite %s: %w", suite.ID, err)
	}
	metrics.RecordAutoTask(string(events.SuiteCheckedOut), "created")
	h.log(ctx).Info().
		Str(log.FieldSuiteID, suite.ID).
		Str(log.FieldTaskID, task.ID).
		Msg("checkout cleaning task created")
	h.publishTaskCreated(ctx, task)
	return nil
}

// SuiteOutOfOrder alerts maintenance staff.
func (h *Handlers) SuiteOutOfOrder(ctx context.Context, e events.SuiteOutOfOrderEvent) error {
	number := e.SuiteID
	if suite, err := h.deps.Suites.GetSuite(ctx, e.SuiteID); err == nil {
		number = suite.Number
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load suite %s: %w", e.SuiteID, err)
	}

	staff, err := h.deps.Employees.ListEmployees(ctx, store.EmployeeFilter{
		Departments:     []model.Department{model.DeptMaintenance},
		Roles:           []model.Role{model.RoleMaintenance, model.RoleSupervisor, model.RoleManager},
		ExcludeInactive: true,
	})
	if err != nil {
		return fmt.Errorf("list maintenance staff: %w", err)
	}

	content := notify.Content{
		Type:              model.NotifySuiteOutOfOrder,
		Title:             "Suite out of order",
		Message:           fmt.Sprintf("Suite %s is out of order: %s", number, e.Reason),
		Priority:          model.PriorityHigh,
		RelatedEntityType: model.EntitySuite,
		RelatedEntityID:   e.SuiteID,
		ActionURL:         "/suites/" + e.SuiteID,
	}
	return h.sendEach(ctx, staffIDs(staff), content)
}

func (h *Handlers) publishTaskCreated(ctx context.Context, t model.Task) {
	h.publish(ctx, events.TaskCreatedEvent{
		Meta:       events.NewMeta(ctx),
		TaskID:     t.ID,
		SuiteID:    t.SuiteID,
		Type:       t.Type,
		Priority:   t.Priority,
		AssignedTo: t.AssignedTo,
		CreatedBy:  t.CreatedBy,
	})
}

// sendEach enqueues one send job per recipient. A failed enqueue does not
// stop the others; all failures are returned together.
func (h *Handlers) sendEach(ctx context.Context, recipients []string, content notify.Content) error {
	var errs []error
	for _, id := range recipients {
		if _, err := h.deps.Notifier.Send(ctx, notify.NotificationJob{RecipientID: id, Content: content}); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", id, err))
		}
	}
	h.log(ctx).Debug().
		Str("type", string(content.Type)).
		Int(log.FieldRecipients, len(recipients)).
		Msg("notifications enqueued")
	return errors.Join(errs...)
}

func staffIDs(es []model.Employee) []string {
	ids := make([]string, 0, len(es))
	for _, e := range es {
		ids = append(ids, e.ID)
	}
	return ids
}
