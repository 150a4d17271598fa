// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package handlers holds the business reactions to domain events: auto-created
// tasks, suite updates that follow task completion, and notifications.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/bus"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/lifecycle"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/notify"
	"github.com/ManuGH/suiteops/internal/queue"
	"github.com/ManuGH/suiteops/internal/store"
)

// Notifier enqueues notification jobs.
type Notifier interface {
	Send(ctx context.Context, job notify.NotificationJob, opts ...queue.Option) (queue.Job, error)
	SendBulk(ctx context.Context, job notify.BulkNotificationJob, opts ...queue.Option) (queue.Job, error)
}

// Subscriber is the registration side of the event bus.
type Subscriber interface {
	Subscribe(name events.Name, id string, h bus.Handler) error
}

// Deps are the collaborators handlers read and write through.
type Deps struct {
	Suites    store.SuiteRepo
	Tasks     store.TaskRepo
	Employees store.EmployeeRepo
	Notifier  Notifier
	// Publisher receives follow-up events such as task.created for
	// auto-created tasks. Optional.
	Publisher bus.Publisher
	Now       func() time.Time
}

// Handlers implements every event policy.
type Handlers struct {
	deps   Deps
	suites *lifecycle.SuiteEngine
	tasks  *lifecycle.TaskEngine
	logger zerolog.Logger
}

func New(d Deps) *Handlers {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Handlers{
		deps:   d,
		suites: lifecycle.NewSuiteEngine(),
		tasks:  lifecycle.NewTaskEngine(),
		logger: log.WithComponent("handlers"),
	}
}

type binding struct {
	name events.Name
	id   string
	fn   bus.Handler
}

func (h *Handlers) bindings() []binding {
	return []binding{
		{events.SuiteStatusChanged, "suite.auto_cleaning_task", on(h.SuiteStatusChanged)},
		{events.SuiteCheckedIn, "suite.record_guest", on(h.SuiteCheckedIn)},
		{events.SuiteCheckedOut, "suite.checkout_cleaning", on(h.SuiteCheckedOut)},
		{events.SuiteOutOfOrder, "suite.notify_maintenance", on(h.SuiteOutOfOrder)},
		{events.TaskCreated, "task.audit_created", on(h.TaskCreated)},
		{events.TaskAssigned, "task.notify_assignee", on(h.TaskAssigned)},
		{events.TaskStatusChanged, "task.audit_status", on(h.TaskStatusChanged)},
		{events.TaskCompleted, "task.apply_completion", on(h.TaskCompleted)},
		{events.TaskVerified, "task.notify_verified", on(h.TaskVerified)},
		{events.TaskEmergencyCreated, "task.notify_emergency", on(h.TaskEmergencyCreated)},
		{events.TaskOverdue, "task.notify_overdue", on(h.TaskOverdue)},
		{events.EmployeeClockIn, "employee.audit_clock_in", on(h.EmployeeClockIn)},
		{events.EmployeeClockOut, "employee.pause_tasks", on(h.EmployeeClockOut)},
		{events.NoteIncidentCreated, "note.notify_incident", on(h.NoteIncidentCreated)},
		{events.NoteFollowUpDue, "note.notify_followup", on(h.NoteFollowUpDue)},
	}
}

// Register builds the handlers and subscribes one to every event name.
func Register(b Subscriber, d Deps) (*Handlers, error) {
	h := New(d)
	for _, bd := range h.bindings() {
		if err := b.Subscribe(bd.name, bd.id, bd.fn); err != nil {
			return nil, fmt.Errorf("register %s: %w", bd.id, err)
		}
	}
	return h, nil
}

// on adapts a typed handler to bus.Handler.
func on[E events.Event](fn func(context.Context, E) error) bus.Handler {
	return func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(E)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", ev, ev.Name())
		}
		return fn(ctx, e)
	}
}

func (h *Handlers) log(ctx context.Context) *zerolog.Logger {
	l := log.WithContext(ctx, h.logger)
	return &l
}

func (h *Handlers) publish(ctx context.Context, ev events.Event) {
	if h.deps.Publisher == nil {
		return
	}
	if err := h.deps.Publisher.Publish(ctx, ev); err != nil {
		h.log(ctx).Warn().Err(err).Str(log.FieldEvent, string(ev.Name())).Msg("follow-up event not published")
	}
}

// errNoChange aborts a store mutation that would not change anything.
var errNoChange = errors.New("no change")

func ignoreNoChange(err error) error {
	if errors.Is(err, errNoChange) {
		return nil
	}
	return err
}
