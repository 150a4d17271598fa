// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package storetest holds the behaviour every store.Store backend must
// satisfy.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/store"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("SuiteRoundTrip", func(t *testing.T) { testSuiteRoundTrip(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("TaskFilters", func(t *testing.T) { testTaskFilters(t, newStore(t)) })
	t.Run("CreateTaskUnless", func(t *testing.T) { testCreateTaskUnless(t, newStore(t)) })
	t.Run("CreateTaskUnlessConcurrent", func(t *testing.T) { testCreateTaskUnlessConcurrent(t, newStore(t)) })
	t.Run("UpdateTasks", func(t *testing.T) { testUpdateTasks(t, newStore(t)) })
	t.Run("EmployeeFilters", func(t *testing.T) { testEmployeeFilters(t, newStore(t)) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
	t.Run("Notes", func(t *testing.T) { testNotes(t, newStore(t)) })
}

func ptr(t time.Time) *time.Time { return &t }

func testSuiteRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	checkIn := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutSuite(ctx, model.Suite{ID: "s1", Number: "101", Status: model.SuiteVacantClean}))
	require.NoError(t, s.PutSuite(ctx, model.Suite{ID: "s2", Number: "102", Status: model.SuiteVacantDirty}))

	updated, err := s.UpdateSuite(ctx, "s1", func(v *model.Suite) error {
		v.Status = model.SuiteOccupiedClean
		v.Guest = &model.Guest{Name: "Ada", CheckInAt: &checkIn, GuestCount: 2}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.SuiteOccupiedClean, updated.Status)

	got, err := s.GetSuite(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.Guest)
	assert.Equal(t, "Ada", got.Guest.Name)
	assert.Equal(t, 2, got.Guest.GuestCount)
	require.NotNil(t, got.Guest.CheckInAt)
	assert.True(t, checkIn.Equal(*got.Guest.CheckInAt))

	abort := errors.New("abort")
	_, err = s.UpdateSuite(ctx, "s1", func(v *model.Suite) error {
		v.Status = model.SuiteBlocked
		return abort
	})
	assert.ErrorIs(t, err, abort)
	got, err = s.GetSuite(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SuiteOccupiedClean, got.Status, "aborted mutation must not persist")

	all, err := s.ListSuites(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "101", all[0].Number)
}

func testUpdateMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.GetSuite(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UpdateTask(ctx, "nope", func(*model.Task) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetEmployee(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetNote(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "nope", time.Now()), store.ErrNotFound)
}

func testTaskFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(id string, typ model.TaskType, st model.TaskState, end *time.Time) {
		_, err := s.CreateTask(ctx, model.Task{
			ID: id, Title: id, Type: typ, Priority: model.PriorityNormal, Status: st,
			SuiteID: "s1", AssignedTo: "e1", ScheduledEnd: end,
		})
		require.NoError(t, err)
	}
	mk("t1", model.TaskCleaning, model.TaskPending, ptr(now.Add(-time.Hour)))
	mk("t2", model.TaskMaintenance, model.TaskInProgress, ptr(now.Add(time.Hour)))
	mk("t3", model.TaskCleaning, model.TaskCompleted, nil)

	_, err := s.CreateTask(ctx, model.Task{ID: "t1", Title: "dup", Type: model.TaskOther, Status: model.TaskPending})
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.ListTasks(ctx, store.TaskFilter{Types: []model.TaskType{model.TaskCleaning}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t3"}, taskIDs(got))

	got, err = s.ListTasks(ctx, store.TaskFilter{Statuses: model.OpenTaskStates(), ScheduledEndBefore: &now, OverdueUnnotified: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, taskIDs(got))

	_, err = s.UpdateTask(ctx, "t1", func(v *model.Task) error {
		v.OverdueNotifiedAt = ptr(now)
		return nil
	})
	require.NoError(t, err)
	got, err = s.ListTasks(ctx, store.TaskFilter{ScheduledEndBefore: &now, OverdueUnnotified: true})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ListTasks(ctx, store.TaskFilter{IDs: []string{"t2", "t3"}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func testCreateTaskUnless(t *testing.T, s store.Store) {
	ctx := context.Background()
	guard := store.OpenCleaningTaskGuard("s1")

	first, created, err := s.CreateTaskUnless(ctx, model.Task{Title: "clean", Type: model.TaskCleaning, Status: model.TaskPending, SuiteID: "s1"}, guard)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, first.ID)

	existing, created, err := s.CreateTaskUnless(ctx, model.Task{Title: "clean again", Type: model.TaskCleaning, Status: model.TaskPending, SuiteID: "s1"}, guard)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, existing.ID)

	_, err = s.UpdateTask(ctx, first.ID, func(v *model.Task) error {
		v.Status = model.TaskCompleted
		return nil
	})
	require.NoError(t, err)

	_, created, err = s.CreateTaskUnless(ctx, model.Task{Title: "next", Type: model.TaskCleaning, Status: model.TaskPending, SuiteID: "s1"}, guard)
	require.NoError(t, err)
	assert.True(t, created, "completed tasks do not block a new auto task")
}

func testCreateTaskUnlessConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	guard := store.OpenCleaningTaskGuard("s9")
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.CreateTaskUnless(ctx, model.Task{Title: "clean", Type: model.TaskCleaning, Status: model.TaskPending, SuiteID: "s9"}, guard)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, createdCount)

	open, err := s.ListTasks(ctx, guard)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func testUpdateTasks(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, tk := range []model.Task{
		{ID: "a", Title: "a", Type: model.TaskCleaning, Status: model.TaskInProgress, AssignedTo: "e1"},
		{ID: "b", Title: "b", Type: model.TaskCleaning, Status: model.TaskInProgress, AssignedTo: "e1"},
		{ID: "c", Title: "c", Type: model.TaskCleaning, Status: model.TaskAssigned, AssignedTo: "e1"},
		{ID: "d", Title: "d", Type: model.TaskCleaning, Status: model.TaskInProgress, AssignedTo: "e2"},
	} {
		_, err := s.CreateTask(ctx, tk)
		require.NoError(t, err)
	}

	n, err := s.UpdateTasks(ctx, store.TaskFilter{AssignedTo: "e1", Statuses: []model.TaskState{model.TaskInProgress}}, func(v *model.Task) error {
		v.Status = model.TaskPaused
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	paused, err := s.ListTasks(ctx, store.TaskFilter{Statuses: []model.TaskState{model.TaskPaused}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, taskIDs(paused))
}

func testEmployeeFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, e := range []model.Employee{
		{ID: "m1", Name: "M1", Role: model.RoleMaintenance, Department: model.DeptMaintenance, Status: model.EmployeeActive},
		{ID: "m2", Name: "M2", Role: model.RoleMaintenance, Department: model.DeptMaintenance, Status: model.EmployeeInactive},
		{ID: "s1", Name: "S1", Role: model.RoleSupervisor, Department: model.DeptHousekeeping, Status: model.EmployeeOnBreak},
		{ID: "s2", Name: "S2", Role: model.RoleSupervisor, Department: model.DeptHousekeeping, Status: model.EmployeeOffDuty},
	} {
		require.NoError(t, s.PutEmployee(ctx, e))
	}

	got, err := s.ListEmployees(ctx, store.EmployeeFilter{Departments: []model.Department{model.DeptMaintenance}, ExcludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, employeeIDs(got))

	got, err = s.ListEmployees(ctx, store.EmployeeFilter{Roles: []model.Role{model.RoleSupervisor}, OnDuty: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, employeeIDs(got))

	e, err := s.UpdateEmployee(ctx, "m1", func(v *model.Employee) error {
		v.TasksCompleted++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.TasksCompleted)
}

func testNotifications(t *testing.T, s store.Store) {
	ctx := context.Background()
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)

	n, err := s.CreateNotification(ctx, model.Notification{RecipientID: "e1", Type: model.NotifySystem, Title: "hi", Message: "m", Priority: model.PriorityNormal})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())

	count, err := s.CreateNotifications(ctx, []model.Notification{
		{ID: "old-read", RecipientID: "e2", Type: model.NotifySystem, Title: "a", Priority: model.PriorityLow, CreatedAt: old},
		{ID: "old-unread", RecipientID: "e2", Type: model.NotifySystem, Title: "b", Priority: model.PriorityLow, CreatedAt: old},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.MarkNotificationRead(ctx, "old-read", time.Now()))
	require.NoError(t, s.MarkNotificationRead(ctx, n.ID, time.Now()))

	deleted, err := s.DeleteReadNotificationsBefore(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	left, err := s.ListNotifications(ctx, store.NotificationFilter{RecipientID: "e2"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "old-unread", left[0].ID)

	unread, err := s.ListNotifications(ctx, store.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	_, err = s.CreateNotifications(ctx, []model.Notification{{ID: "x", RecipientID: "e3", Title: "t"}, {ID: "x", RecipientID: "e4", Title: "t"}})
	assert.ErrorIs(t, err, store.ErrConflict)
	none, err := s.ListNotifications(ctx, store.NotificationFilter{RecipientID: "e3"})
	require.NoError(t, err)
	assert.Empty(t, none, "a failed batch inserts nothing")
}

func testNotes(t *testing.T, s store.Store) {
	ctx := context.Background()
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n, err := s.CreateNote(ctx, model.Note{Type: model.NoteFollowUp, Content: "call guest", SuiteID: "s1", AuthorID: "e1", AssignedTo: "e2", FollowUpAt: &due})
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, model.Note{Type: model.NoteGeneral, Content: "fyi", SuiteID: "s1", AuthorID: "e1"})
	require.NoError(t, err)

	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "e2", got.AssignedTo)

	cut := due.Add(time.Minute)
	list, err := s.ListNotes(ctx, store.NoteFilter{Type: model.NoteFollowUp, FollowUpBefore: &cut})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)

	all, err := s.ListNotes(ctx, store.NoteFilter{SuiteID: "s1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func taskIDs(ts []model.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func employeeIDs(es []model.Employee) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}
