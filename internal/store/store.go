// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store declares the narrow record-store interfaces the workflow
// engine depends on. Each method is atomic for a single record; no method
// spans entities.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/suiteops/internal/domain/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when creating a record whose id already exists.
	ErrConflict = errors.New("record already exists")
)

// Mutator edits a record in place inside an atomic update. Returning an
// error aborts the update.
type Mutator[T any] func(*T) error

type SuiteRepo interface {
	GetSuite(ctx context.Context, id string) (model.Suite, error)
	PutSuite(ctx context.Context, s model.Suite) error
	UpdateSuite(ctx context.Context, id string, fn Mutator[model.Suite]) (model.Suite, error)
	ListSuites(ctx context.Context) ([]model.Suite, error)
}

type TaskRepo interface {
	GetTask(ctx context.Context, id string) (model.Task, error)
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	// CreateTaskUnless creates t only when no existing task matches guard.
	// The check and the insert are one atomic step. It reports whether t
	// was created; when it was not, the first matching task is returned.
	CreateTaskUnless(ctx context.Context, t model.Task, guard TaskFilter) (model.Task, bool, error)
	UpdateTask(ctx context.Context, id string, fn Mutator[model.Task]) (model.Task, error)
	// UpdateTasks applies fn to every task matching f and returns the
	// number of tasks changed.
	UpdateTasks(ctx context.Context, f TaskFilter, fn Mutator[model.Task]) (int, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]model.Task, error)
}

type EmployeeRepo interface {
	GetEmployee(ctx context.Context, id string) (model.Employee, error)
	PutEmployee(ctx context.Context, e model.Employee) error
	UpdateEmployee(ctx context.Context, id string, fn Mutator[model.Employee]) (model.Employee, error)
	ListEmployees(ctx context.Context, f EmployeeFilter) ([]model.Employee, error)
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	// CreateNotifications inserts all records in one batch.
	CreateNotifications(ctx context.Context, ns []model.Notification) (int, error)
	ListNotifications(ctx context.Context, f NotificationFilter) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, at time.Time) error
	// DeleteReadNotificationsBefore removes read notifications created
	// before cutoff.
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type NoteRepo interface {
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
	GetNote(ctx context.Context, id string) (model.Note, error)
	ListNotes(ctx context.Context, f NoteFilter) ([]model.Note, error)
}

// Store bundles every repository behind one backend.
type Store interface {
	SuiteRepo
	TaskRepo
	EmployeeRepo
	NotificationRepo
	NoteRepo
	Close() error
}
