// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package handlers

import (
	"context"
	"fmt"

	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/notify"
	"github.com/ManuGH/suiteops/internal/store"
)

const excerptLen = 120

func (h *Handlers) NoteIncidentCreated(ctx context.Context, e events.NoteIncidentCreatedEvent) error {
	staff, err := h.deps.Employees.ListEmployees(ctx, store.EmployeeFilter{
		Roles:           []model.Role{model.RoleManager, model.RoleAdmin},
		ExcludeInactive: true,
	})
	if err != nil {
		return fmt.Errorf("list managers: %w", err)
	}
	return h.sendEach(ctx, staffIDs(staff), notify.Content{
		Type:              model.NotifyIncidentReported,
		Title:             "Incident reported",
		Message:           excerpt(e.Content),
		Priority:          model.PriorityHigh,
		RelatedEntityType: model.EntityNote,
		RelatedEntityID:   e.NoteID,
		ActionURL:         "/notes/" + e.NoteID,
		ActionRequired:    true,
	})
}

func (h *Handlers) NoteFollowUpDue(ctx context.Context, e events.NoteFollowUpDueEvent) error {
	if e.AssignedTo == "" {
		return nil
	}
	_, err := h.deps.Notifier.Send(ctx, notify.NotificationJob{
		RecipientID: e.AssignedTo,
		Content: notify.Content{
			Type:              model.NotifyFollowUpDue,
			Title:             "Follow-up due",
			Message:           excerpt(e.Content),
			RelatedEntityType: model.EntityNote,
			RelatedEntityID:   e.NoteID,
			ActionURL:         "/notes/" + e.NoteID,
		},
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", e.AssignedTo, err)
	}
	return nil
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen]) + "…"
}
