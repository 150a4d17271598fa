// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package memory implements store.Store in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/store"
)

// Store keeps every record in maps guarded by a single mutex.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	suites        map[string]model.Suite
	tasks         map[string]model.Task
	employees     map[string]model.Employee
	notifications map[string]model.Notification
	notes         map[string]model.Note
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:           func() time.Time { return time.Now().UTC() },
		suites:        make(map[string]model.Suite),
		tasks:         make(map[string]model.Task),
		employees:     make(map[string]model.Employee),
		notifications: make(map[string]model.Notification),
		notes:         make(map[string]model.Note),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Close() error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
}

// --- suites ---

func (s *Store) GetSuite(_ context.Context, id string) (model.Suite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.suites[id]
	if !ok {
		return model.Suite{}, notFound("suite", id)
	}
	return cloneSuite(v), nil
}

func (s *Store) PutSuite(_ context.Context, v model.Suite) error {
	if v.ID == "" {
		return fmt.Errorf("put suite: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v.UpdatedAt = s.now()
	s.suites[v.ID] = cloneSuite(v)
	return nil
}

func (s *Store) UpdateSuite(_ context.Context, id string, fn store.Mutator[model.Suite]) (model.Suite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.suites[id]
	if !ok {
		return model.Suite{}, notFound("suite", id)
	}
	v = cloneSuite(v)
	if err := fn(&v); err != nil {
		return model.Suite{}, err
	}
	v.ID = id
	v.UpdatedAt = s.now()
	s.suites[id] = cloneSuite(v)
	return v, nil
}

func (s *Store) ListSuites(_ context.Context) ([]model.Suite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Suite, 0, len(s.suites))
	for _, v := range s.suites {
		out = append(out, cloneSuite(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// --- tasks ---

func (s *Store) GetTask(_ context.Context, id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tasks[id]
	if !ok {
		return model.Task{}, notFound("task", id)
	}
	return v, nil
}

func (s *Store) CreateTask(_ context.Context, t model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTaskLocked(t)
}

func (s *Store) insertTaskLocked(t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := s.tasks[t.ID]; exists {
		return model.Task{}, fmt.Errorf("task %q: %w", t.ID, store.ErrConflict)
	}
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) CreateTaskUnless(_ context.Context, t model.Task, guard store.TaskFilter) (model.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sortedTasksLocked() {
		if guard.Match(existing) {
			return existing, false, nil
		}
	}
	created, err := s.insertTaskLocked(t)
	if err != nil {
		return model.Task{}, false, err
	}
	return created, true, nil
}

func (s *Store) UpdateTask(_ context.Context, id string, fn store.Mutator[model.Task]) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tasks[id]
	if !ok {
		return model.Task{}, notFound("task", id)
	}
	if err := fn(&v); err != nil {
		return model.Task{}, err
	}
	v.ID = id
	v.UpdatedAt = s.now()
	s.tasks[id] = v
	return v, nil
}

func (s *Store) UpdateTasks(_ context.Context, f store.TaskFilter, fn store.Mutator[model.Task]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []model.Task
	for _, v := range s.sortedTasksLocked() {
		if !f.Match(v) {
			continue
		}
		id := v.ID
		if err := fn(&v); err != nil {
			return 0, err
		}
		v.ID = id
		changed = append(changed, v)
	}
	now := s.now()
	for _, v := range changed {
		v.UpdatedAt = now
		s.tasks[v.ID] = v
	}
	return len(changed), nil
}

func (s *Store) ListTasks(_ context.Context, f store.TaskFilter) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Task
	for _, v := range s.sortedTasksLocked() {
		if f.Match(v) {
			out = append(out, v)
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) sortedTasksLocked() []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, v := range s.tasks {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// --- employees ---

func (s *Store) GetEmployee(_ context.Context, id string) (model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.employees[id]
	if !ok {
		return model.Employee{}, notFound("employee", id)
	}
	return v, nil
}

func (s *Store) PutEmployee(_ context.Context, e model.Employee) error {
	if e.ID == "" {
		return fmt.Errorf("put employee: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
	return nil
}

func (s *Store) UpdateEmployee(_ context.Context, id string, fn store.Mutator[model.Employee]) (model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.employees[id]
	if !ok {
		return model.Employee{}, notFound("employee", id)
	}
	if err := fn(&v); err != nil {
		return model.Employee{}, err
	}
	v.ID = id
	s.employees[id] = v
	return v, nil
}

func (s *Store) ListEmployees(_ context.Context, f store.EmployeeFilter) ([]model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Employee
	for _, v := range s.employees {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- notifications ---

func (s *Store) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertNotificationLocked(n)
}

func (s *Store) insertNotificationLocked(n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := s.notifications[n.ID]; exists {
		return model.Notification{}, fmt.Errorf("notification %q: %w", n.ID, store.ErrConflict)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) CreateNotifications(_ context.Context, ns []model.Notification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make([]model.Notification, 0, len(ns))
	seen := make(map[string]struct{}, len(ns))
	for _, n := range ns {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if _, dup := seen[n.ID]; dup {
			return 0, fmt.Errorf("notification %q: %w", n.ID, store.ErrConflict)
		}
		if _, exists := s.notifications[n.ID]; exists {
			return 0, fmt.Errorf("notification %q: %w", n.ID, store.ErrConflict)
		}
		seen[n.ID] = struct{}{}
		staged = append(staged, n)
	}
	for _, n := range staged {
		if _, err := s.insertNotificationLocked(n); err != nil {
			return 0, err
		}
	}
	return len(staged), nil
}

func (s *Store) ListNotifications(_ context.Context, f store.NotificationFilter) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Notification
	for _, v := range s.notifications {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.notifications[id]
	if !ok {
		return notFound("notification", id)
	}
	if v.Read {
		return nil
	}
	v.Read = true
	v.ReadAt = &at
	s.notifications[id] = v
	return nil
}

func (s *Store) DeleteReadNotificationsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.notifications {
		if v.Read && v.CreatedAt.Before(cutoff) {
			delete(s.notifications, id)
			n++
		}
	}
	return n, nil
}

// --- notes ---

func (s *Store) CreateNote(_ context.Context, n model.Note) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := s.notes[n.ID]; exists {
		return model.Note{}, fmt.Errorf("note %q: %w", n.ID, store.ErrConflict)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notes[n.ID] = n
	return n, nil
}

func (s *Store) GetNote(_ context.Context, id string) (model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.notes[id]
	if !ok {
		return model.Note{}, notFound("note", id)
	}
	return v, nil
}

func (s *Store) ListNotes(_ context.Context, f store.NoteFilter) ([]model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Note
	for _, v := range s.notes {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneSuite(s model.Suite) model.Suite {
	if s.Guest != nil {
		g := *s.Guest
		s.Guest = &g
	}
	return s
}
