// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/suiteops/internal/control/authz"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/lifecycle"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/store"
)

type Suites struct{ *core }

// ChangeStatus moves a suite to a new status. Facts for the rule table are
// derived from the suite's tasks: a cleaning or maintenance task completed
// since the suite last changed.
func (s *Suites) ChangeStatus(ctx context.Context, suiteID string, to model.SuiteState, reason string) (model.Suite, error) {
	actor, err := s.authorize(ctx, authz.OpSuiteChangeStatus)
	if err != nil {
		return model.Suite{}, err
	}
	updated, _, err := s.changeStatus(ctx, actor, suiteID, to, reason)
	return updated, err
}

// changeStatus reports false when the suite already had status to; nothing
// is written or published then.
func (s *Suites) changeStatus(ctx context.Context, actor *authz.Actor, suiteID string, to model.SuiteState, reason string) (model.Suite, bool, error) {
	current, err := s.store.GetSuite(ctx, suiteID)
	if err != nil {
		return model.Suite{}, false, err
	}
	facts, err := s.suiteFacts(ctx, current, reason)
	if err != nil {
		return model.Suite{}, false, err
	}
	if err := s.suites.AssertValid(current.Status, to, facts); err != nil {
		return model.Suite{}, false, rejected(err)
	}
	if current.Status == to {
		return current, false, nil
	}

	from := current.Status
	updated, err := s.store.UpdateSuite(ctx, suiteID, func(su *model.Suite) error {
		if su.Status != from {
			return fmt.Errorf("suite %s: %w", suiteID, ErrStaleState)
		}
		su.Status = to
		return nil
	})
	if err != nil {
		return model.Suite{}, false, err
	}

	metrics.RecordTransition(s.suites.Entity(), string(from), string(to))
	s.log(ctx).Info().
		Str(log.FieldSuiteID, suiteID).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Str(log.FieldActorID, actor.ID).
		Msg("suite status changed")
	s.publish(ctx, events.SuiteStatusChangedEvent{
		Meta:           events.NewMeta(ctx),
		SuiteID:        suiteID,
		PreviousStatus: from,
		NewStatus:      to,
		ActorID:        actor.ID,
		Reason:         reason,
	})
	return updated, true, nil
}

func (s *Suites) suiteFacts(ctx context.Context, su model.Suite, reason string) (lifecycle.Facts, error) {
	facts := lifecycle.Facts{lifecycle.FactReason: strings.TrimSpace(reason)}
	done, err := s.store.ListTasks(ctx, store.TaskFilter{
		SuiteID:  su.ID,
		Statuses: []model.TaskState{model.TaskCompleted, model.TaskVerified},
	})
	if err != nil {
		return nil, fmt.Errorf("load completed tasks: %w", err)
	}
	for _, t := range done {
		if t.CompletedAt == nil || t.CompletedAt.Before(su.UpdatedAt) {
			continue
		}
		switch {
		case t.Type.IsCleaning():
			facts[lifecycle.FactHasCompletedCleaningTask] = true
		case t.Type == model.TaskMaintenance:
			facts[lifecycle.FactHasCompletedMaintenanceTask] = true
		}
	}
	return facts, nil
}

// CheckIn occupies a clean vacant suite. The guest record is written by the
// suite.checked.in handler.
func (s *Suites) CheckIn(ctx context.Context, suiteID string, guest model.Guest) (model.Suite, error) {
	actor, err := s.authorize(ctx, authz.OpSuiteCheckIn)
	if err != nil {
		return model.Suite{}, err
	}
	if strings.TrimSpace(guest.Name) == "" {
		return model.Suite{}, invalid("guest name is required")
	}
	current, err := s.store.GetSuite(ctx, suiteID)
	if err != nil {
		return model.Suite{}, err
	}
	if !lifecycle.IsAvailableForCheckIn(current.Status) {
		err := s.suites.AssertValid(current.Status, model.SuiteOccupiedClean, nil)
		if err == nil || errors.Is(err, lifecycle.ErrMissingPrecondition) {
			err = s.suites.Reject(current.Status, model.SuiteOccupiedClean,
				fmt.Sprintf("Suite %s is not available for check-in (status %s)", current.Number, current.Status))
		}
		return model.Suite{}, rejected(err)
	}
	updated, _, err := s.changeStatus(ctx, actor, suiteID, model.SuiteOccupiedClean, "")
	if err != nil {
		return model.Suite{}, err
	}
	s.publish(ctx, events.SuiteCheckedInEvent{
		Meta:    events.NewMeta(ctx),
		SuiteID: suiteID,
		Guest:   guest,
		ActorID: actor.ID,
	})
	return updated, nil
}

// CheckOut validates the departure and publishes suite.checked.out. The
// status change and the cleaning task follow from the handler.
func (s *Suites) CheckOut(ctx context.Context, suiteID string) error {
	actor, err := s.authorize(ctx, authz.OpSuiteCheckOut)
	if err != nil {
		return err
	}
	current, err := s.store.GetSuite(ctx, suiteID)
	if err != nil {
		return err
	}
	if !lifecycle.IsOccupied(current.Status) {
		return invalid("suite %s is not occupied", suiteID)
	}
	if err := s.suites.AssertValid(current.Status, model.SuiteVacantDirty, nil); err != nil {
		return rejected(err)
	}
	s.publish(ctx, events.SuiteCheckedOutEvent{
		Meta:           events.NewMeta(ctx),
		SuiteID:        suiteID,
		PreviousStatus: current.Status,
		ActorID:        actor.ID,
	})
	return nil
}

// MarkOutOfOrder takes a suite out of service and alerts maintenance.
func (s *Suites) MarkOutOfOrder(ctx context.Context, suiteID, reason string) (model.Suite, error) {
	actor, err := s.authorize(ctx, authz.OpSuiteMarkOutOfOrder)
	if err != nil {
		return model.Suite{}, err
	}
	updated, changed, err := s.changeStatus(ctx, actor, suiteID, model.SuiteOutOfOrder, reason)
	if err != nil || !changed {
		return updated, err
	}
	s.publish(ctx, events.SuiteOutOfOrderEvent{
		Meta:    events.NewMeta(ctx),
		SuiteID: suiteID,
		Reason:  reason,
		ActorID: actor.ID,
	})
	return updated, nil
}
