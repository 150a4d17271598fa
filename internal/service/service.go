// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package service is the write path for suites, tasks, employees and notes:
// authorize the actor, validate the transition, persist, then publish.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/bus"
	"github.com/ManuGH/suiteops/internal/control/authz"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/lifecycle"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/store"
)

var (
	// ErrInvalidInput marks a request rejected before any state was read.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStaleState means the record changed between validation and write.
	ErrStaleState = errors.New("state changed concurrently")

	// errUnchanged aborts an update whose target state equals the current one.
	errUnchanged = errors.New("state unchanged")
)

// Deps wires the service to persistence and the event bus.
type Deps struct {
	Store     store.Store
	Publisher bus.Publisher
	Now       func() time.Time
}

// Service bundles the per-entity services over a shared core.
type Service struct {
	Suites    *Suites
	Tasks     *Tasks
	Employees *Employees
	Notes     *Notes
}

type core struct {
	store     store.Store
	publisher bus.Publisher
	now       func() time.Time
	suites    *lifecycle.SuiteEngine
	tasks     *lifecycle.TaskEngine
	logger    zerolog.Logger
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	c := &core{
		store:     d.Store,
		publisher: d.Publisher,
		now:       d.Now,
		suites:    lifecycle.NewSuiteEngine(),
		tasks:     lifecycle.NewTaskEngine(),
		logger:    log.WithComponent("service"),
	}
	return &Service{
		Suites:    &Suites{c},
		Tasks:     &Tasks{c},
		Employees: &Employees{c},
		Notes:     &Notes{c},
	}
}

func (c *core) log(ctx context.Context) *zerolog.Logger {
	l := log.WithContext(ctx, c.logger)
	return &l
}

// authorize resolves the actor from ctx and checks it against op.
func (c *core) authorize(ctx context.Context, op string) (*authz.Actor, error) {
	actor := authz.ActorFromContext(ctx)
	if err := authz.Authorize(actor, op); err != nil {
		ev := c.log(ctx).Info().Str("operation", op).Err(err)
		if actor != nil {
			ev = ev.Str(log.FieldActorID, actor.ID)
		}
		ev.Msg("operation denied")
		return nil, err
	}
	return actor, nil
}

// rejected records a transition rejection metric and passes err through.
func rejected(err error) error {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		reason := "invalid"
		if errors.Is(err, lifecycle.ErrMissingPrecondition) {
			reason = "precondition"
		}
		metrics.RecordTransitionRejected(te.Entity, reason)
	}
	return err
}

// publish hands events to the bus. Persistence already succeeded, so a
// publish failure is logged rather than returned.
func (c *core) publish(ctx context.Context, evs ...events.Event) {
	if c.publisher == nil {
		return
	}
	for _, ev := range evs {
		if err := c.publisher.Publish(ctx, ev); err != nil {
			c.log(ctx).Error().Err(err).Str(log.FieldEvent, string(ev.Name())).Msg("event not published")
		}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
