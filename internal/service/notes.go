// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/suiteops/internal/control/authz"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
)

type Notes struct{ *core }

// NewNote is the input to Notes.Create.
type NewNote struct {
	Type       model.NoteType
	Content    string
	SuiteID    string
	TaskID     string
	AssignedTo string
	FollowUpAt *time.Time
}

// Create stores a note. Incident notes alert management; follow-up notes
// alert their assignee.
func (s *Notes) Create(ctx context.Context, in NewNote) (model.Note, error) {
	actor, err := s.authorize(ctx, authz.OpNoteCreate)
	if err != nil {
		return model.Note{}, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return model.Note{}, invalid("content is required")
	}
	if in.Type == "" {
		in.Type = model.NoteGeneral
	}
	if in.Type == model.NoteMaintenance {
		if err := authz.AllOf(authz.PermAddMaintenanceNotes).Check(actor); err != nil {
			return model.Note{}, err
		}
	}

	note, err := s.store.CreateNote(ctx, model.Note{
		Type:       in.Type,
		Content:    in.Content,
		SuiteID:    in.SuiteID,
		TaskID:     in.TaskID,
		AuthorID:   actor.ID,
		AssignedTo: in.AssignedTo,
		FollowUpAt: in.FollowUpAt,
	})
	if err != nil {
		return model.Note{}, fmt.Errorf("create note: %w", err)
	}

	switch note.Type {
	case model.NoteIncident:
		s.publish(ctx, events.NoteIncidentCreatedEvent{
			Meta:     events.NewMeta(ctx),
			NoteID:   note.ID,
			SuiteID:  note.SuiteID,
			AuthorID: actor.ID,
			Content:  note.Content,
		})
	case model.NoteFollowUp:
		s.publish(ctx, events.NoteFollowUpDueEvent{
			Meta:       events.NewMeta(ctx),
			NoteID:     note.ID,
			SuiteID:    note.SuiteID,
			AssignedTo: note.AssignedTo,
			Content:    note.Content,
		})
	}
	return note, nil
}
