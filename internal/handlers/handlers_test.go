// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/suiteops/internal/bus"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/notify"
	"github.com/ManuGH/suiteops/internal/queue"
	"github.com/ManuGH/suiteops/internal/store"
	"github.com/ManuGH/suiteops/internal/store/memory"
)

type sent struct {
	recipients []string
	content    notify.Content
}

type fakeNotifier struct {
	mu   sync.Mutex
	jobs []sent
}

func (f *fakeNotifier) Send(_ context.Context, job notify.NotificationJob, _ ...queue.Option) (queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, sent{recipients: []string{job.RecipientID}, content: job.Content})
	return queue.Job{Type: notify.JobSend}, nil
}

func (f *fakeNotifier) SendBulk(_ context.Context, job notify.BulkNotificationJob, _ ...queue.Option) (queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, sent{recipients: job.RecipientIDs, content: job.Content})
	return queue.Job{Type: notify.JobSendBulk}, nil
}

func (f *fakeNotifier) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.jobs...)
}

func (f *fakeNotifier) recipientsOf(typ model.NotificationType) []string {
	var out []string
	for _, s := range f.all() {
		if s.content.Type == typ {
			out = append(out, s.recipients...)
		}
	}
	return out
}

// recorder captures follow-up events without dispatching them.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) names() []events.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Name, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Name())
	}
	return out
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	notifier *fakeNotifier
	rec      *recorder
	h        *Handlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New(memory.WithClock(func() time.Time { return fixedNow }))
	f := &fixture{store: st, notifier: &fakeNotifier{}, rec: &recorder{}}
	f.h = New(Deps{
		Suites:    st,
		Tasks:     st,
		Employees: st,
		Notifier:  f.notifier,
		Publisher: f.rec,
		Now:       func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) suite(t *testing.T, id, number string, status model.SuiteState) {
	t.Helper()
	require.NoError(t, f.store.PutSuite(context.Background(), model.Suite{ID: id, Number: number, Status: status}))
}

func (f *fixture) employee(t *testing.T, e model.Employee) {
	t.Helper()
	require.NoError(t, f.store.PutEmployee(context.Background(), e))
}

func (f *fixture) openCleaningTasks(t *testing.T, suiteID string) []model.Task {
	t.Helper()
	tasks, err := f.store.ListTasks(context.Background(), store.OpenCleaningTaskGuard(suiteID))
	require.NoError(t, err)
	return tasks
}

func TestSuiteStatusChanged_CreatesSingleCleaningTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.suite(t, "s1", "101", model.SuiteVacantDirty)

	ev := events.SuiteStatusChangedEvent{
		SuiteID:        "s1",
		PreviousStatus: model.SuiteVacantClean,
		NewStatus:      model.SuiteVacantDirty,
		ActorID:        "emp-1",
	}
	require.NoError(t, f.h.SuiteStatusChanged(ctx, ev))
	require.NoError(t, f.h.SuiteStatusChanged(ctx, ev))

	tasks := f.openCleaningTasks(t, "s1")
	require.Len(t, tasks, 1)
	assert.Equal(t, model.TaskCleaning, tasks[0].Type)
	assert.Equal(t, model.TaskPending, tasks[0].Status)
	assert.Equal(t, "emp-1", tasks[0].CreatedBy)
	assert.Contains(t, tasks[0].Title, "101")
	assert.Equal(t, []events.Name{events.TaskCreated}, f.rec.names())
}

func TestSuiteStatusChanged_ConcurrentEventsCreateOneTask(t *testing.T) {
	f := newFixture(t)
	f.suite(t, "s1", "101", model.SuiteOccupiedDirty)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.h.SuiteStatusChanged(context.Background(), events.SuiteStatusChangedEvent{
				SuiteID:        "s1",
				PreviousStatus: model.SuiteOccupiedClean,
				NewStatus:      model.SuiteOccupiedDirty,
			})
		}()
	}
	wg.Wait()

	tasks := f.openCleaningTasks(t, "s1")
	require.Len(t, tasks, 1)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
}

func TestSuiteStatusChanged_IgnoresCleanStates(t *testing.T) {
	f := newFixture(t)
	f.suite(t, "s1", "101", model.SuiteVacantClean)

	require.NoError(t, f.h.SuiteStatusChanged(context.Background(), events.SuiteStatusChangedEvent{
		SuiteID:        "s1",
		PreviousStatus: model.SuiteVacantDirty,
		NewStatus:      model.SuiteVacantClean,
	}))
	assert.Empty(t, f.openCleaningTasks(t, "s1"))
}

func TestSuiteStatusChanged_ExistingDeepCleaningBlocksNewTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.suite(t, "s1", "101", model.SuiteVacantDirty)
	_, err := f.store.CreateTask(ctx, model.Task{ID: "deep", Type: model.TaskDeepCleaning, Status: model.TaskInProgress, SuiteID: "s1"})
	require.NoError(t, err)

	require.NoError(t, f.h.SuiteStatusChanged(ctx, events.SuiteStatusChangedEvent{SuiteID: "s1", NewStatus: model.SuiteVacantDirty}))

	tasks := f.openCleaningTasks(t, "s1")
	require.Len(t, tasks, 1)
	assert.Equal(t, "deep", tasks[0].ID)
	assert.Empty(t, f.rec.names())
}

func TestSuiteCheckedIn_RecordsGuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.suite(t, "s1", "101", model.SuiteOccupiedClean)

	require.NoError(t, f.h.SuiteCheckedIn(ctx, events.SuiteCheckedInEvent{
		SuiteID: "s1",
		Guest:   model.Guest{Name: "Ada", GuestCount: 2},
	}))

	s, err := f.store.GetSuite(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s.Guest)
	assert.Equal(t, "Ada", s.Guest.Name)
	require.NotNil(t, s.Guest.CheckInAt)
	assert.Equal(t, fixedNow, *s.Guest.CheckInAt)
}

func TestSuiteCheckedOut_DirtiesSuiteAndAlwaysCreatesTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.PutSuite(ctx, model.Suite{
		ID: "s1", Number: "204", Status: model.SuiteOccupiedClean, Guest: &model.Guest{Name: "Ada"},
	}))
	_, err := f.store.CreateTask(ctx, model.Task{Type: model.TaskCleaning, Status: model.TaskPending, SuiteID: "s1"})
	require.NoError(t, err)

	require.NoError(t, f.h.SuiteCheckedOut(ctx, events.SuiteCheckedOutEvent{SuiteID: "s1", PreviousStatus: model.SuiteOccupiedClean}))

	s, err := f.store.GetSuite(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SuiteVacantDirty, s.Status)
	assert.Nil(t, s.Guest)

	tasks := f.openCleaningTasks(t, "s1")
	require.Len(t, tasks, 2)
	var checkout *model.Task
	for i := range tasks {
		if tasks[i].Priority == model.PriorityHigh {
			checkout = &tasks[i]
		}
	}
	require.NotNil(t, checkout)
	assert.Equal(t, "Checkout cleaning - Suite 204", checkout.Title)
	assert.Equal(t, []events.Name{events.TaskCreated}, f.rec.names())
}

func TestSuiteOutOfOrder_NotifiesMaintenanceStaff(t *testing.T) {
	f := newFixture(t)
	f.suite(t, "s1", "101", model.SuiteOutOfOrder)
	f.employee(t, model.Employee{ID: "m1", Role: model.RoleMaintenance, Department: model.DeptMaintenance, Status: model.EmployeeActive})
	f.employee(t, model.Employee{ID: "m2", Role: model.RoleSupervisor, Department: model.DeptMaintenance, Status: model.EmployeeOffDuty})
	f.employee(t, model.Employee{ID: "m3", Role: model.RoleMaintenance, Department: model.DeptMaintenance, Status: model.EmployeeInactive})
	f.employee(t, model.Employee{ID: "h1", Role: model.RoleSupervisor, Department: model.DeptHousekeeping, Status: model.EmployeeActive})
	f.employee(t, model.Employee{ID: "m4", Role: model.RoleHousekeeper, Department: model.DeptMaintenance, Status: model.EmployeeActive})

	require.NoError(t, f.h.SuiteOutOfOrder(context.Background(), events.SuiteOutOfOrderEvent{SuiteID: "s1", Reason: "leak"}))

	assert.ElementsMatch(t, []string{"m1", "m2"}, f.notifier.recipientsOf(model.NotifySuiteOutOfOrder))
	for _, s := range f.notifier.all() {
		assert.Equal(t, model.PriorityHigh, s.content.Priority)
		assert.Contains(t, s.content.Message, "leak")
	}
}

func TestTaskCompleted_CleaningMakesSuiteClean(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.suite(t, "s1", "101", model.SuiteVacantDirty)
	f.employee(t, model.Employee{ID: "e1", Role: model.RoleHousekeeper, Status: model.EmployeeActive, TasksCompleted: 4})

	require.NoError(t, f.h.TaskCompleted(ctx, events.TaskCompletedEvent{
		TaskID: "t1", SuiteID: "s1", Type: model.TaskCleaning, CompletedBy: "e1",
	}))

	s, err := f.store.GetSuite(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SuiteVacantClean, s.Status)
	require.NotNil(t, s.LastCleanedAt)
	assert.Equal(t, fixedNow, *s.LastCleanedAt)

	e, err := f.store.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 5, e.TasksCompleted)
	assert.Equal(t, []events.Name{events.SuiteStatusChanged}, f.rec.names())
}

func TestTaskCompleted_MaintenanceReturnsSuiteDirty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.suite(t, "s1", "101", model.SuiteOutOfOrder)

	require.NoError(t, f.h.TaskCompleted(ctx, events.TaskCompletedEvent{TaskID: "t1", SuiteID: "s1", Type: model.TaskMaintenance}))

	s, err := f.store.GetSuite(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SuiteVacantDirty, s.Status)
	assert.Nil(t, s.LastCleanedAt)

	f.rec.mu.Lock()
	require.Len(t, f.rec.events, 1)
	changed, ok := f.rec.events[0].(events.SuiteStatusChangedEvent)
	f.rec.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, model.SuiteOutOfOrder, changed.PreviousStatus)
	assert.Equal(t, model.SuiteVacantDirty, changed.NewStatus)
}

func TestTaskCompleted_NoApplicableTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.suite(t, "s1", "101", model.SuiteOccupiedClean)

	require.NoError(t, f.h.TaskCompleted(ctx, events.TaskCompletedEvent{TaskID: "t1", SuiteID: "s1", Type: model.TaskInspection}))

	s, err := f.store.GetSuite(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SuiteOccupiedClean, s.Status)
	assert.Empty(t, f.rec.names())
}

func TestTaskAssigned_NotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, err := f.store.CreateTask(ctx, model.Task{Title: "Fix sink", Priority: model.PriorityUrgent, Status: model.TaskAssigned, AssignedTo: "e1"})
	require.NoError(t, err)

	require.NoError(t, f.h.TaskAssigned(ctx, events.TaskAssignedEvent{TaskID: task.ID, AssignedTo: "e1"}))

	jobs := f.notifier.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"e1"}, jobs[0].recipients)
	assert.Equal(t, model.NotifyTaskAssigned, jobs[0].content.Type)
	assert.Equal(t, model.PriorityUrgent, jobs[0].content.Priority)
	assert.Equal(t, "/tasks/"+task.ID, jobs[0].content.ActionURL)
}

func TestTaskEmergencyCreated_NotifiesLeads(t *testing.T) {
	f := newFixture(t)
	f.employee(t, model.Employee{ID: "sup", Role: model.RoleSupervisor, Status: model.EmployeeOffDuty})
	f.employee(t, model.Employee{ID: "mgr", Role: model.RoleManager, Status: model.EmployeeActive})
	f.employee(t, model.Employee{ID: "adm", Role: model.RoleAdmin, Status: model.EmployeeInactive})
	f.employee(t, model.Employee{ID: "hk", Role: model.RoleHousekeeper, Status: model.EmployeeActive})

	require.NoError(t, f.h.TaskEmergencyCreated(context.Background(), events.TaskEmergencyCreatedEvent{TaskID: "t1", Title: "Fire alarm"}))

	assert.ElementsMatch(t, []string{"sup", "mgr"}, f.notifier.recipientsOf(model.NotifyEmergencyTask))
	for _, s := range f.notifier.all() {
		assert.Equal(t, model.PriorityEmergency, s.content.Priority)
		assert.True(t, s.content.ActionRequired)
	}
}

func TestTaskOverdue_NotifiesAndMarksTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := fixedNow.Add(-time.Hour)
	task, err := f.store.CreateTask(ctx, model.Task{Status: model.TaskInProgress, AssignedTo: "e1", ScheduledEnd: &end})
	require.NoError(t, err)
	f.employee(t, model.Employee{ID: "sup", Role: model.RoleSupervisor, Status: model.EmployeeOnBreak})
	f.employee(t, model.Employee{ID: "off", Role: model.RoleManager, Status: model.EmployeeOffDuty})

	require.NoError(t, f.h.TaskOverdue(ctx, events.TaskOverdueEvent{TaskID: task.ID, AssignedTo: "e1", ScheduledEnd: end}))

	jobs := f.notifier.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"e1", "sup"}, jobs[0].recipients)
	assert.Equal(t, model.NotifyTaskOverdue, jobs[0].content.Type)

	got, err := f.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OverdueNotifiedAt)
	assert.Equal(t, fixedNow, *got.OverdueNotifiedAt)
}

func TestEmployeeClockOut_PausesInProgressTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, model.Employee{ID: "e1", Name: "Sam", Role: model.RoleHousekeeper, Status: model.EmployeeOffDuty})
	f.employee(t, model.Employee{ID: "sup", Role: model.RoleSupervisor, Status: model.EmployeeActive})
	for _, tk := range []model.Task{
		{ID: "a", AssignedTo: "e1", Status: model.TaskInProgress},
		{ID: "b", AssignedTo: "e1", Status: model.TaskInProgress},
		{ID: "c", AssignedTo: "e1", Status: model.TaskAssigned},
		{ID: "d", AssignedTo: "e2", Status: model.TaskInProgress},
	} {
		_, err := f.store.CreateTask(ctx, tk)
		require.NoError(t, err)
	}

	require.NoError(t, f.h.EmployeeClockOut(ctx, events.EmployeeClockOutEvent{EmployeeID: "e1", ActiveTaskCount: 2}))

	want := map[string]model.TaskState{"a": model.TaskPaused, "b": model.TaskPaused, "c": model.TaskAssigned, "d": model.TaskInProgress}
	for id, status := range want {
		got, err := f.store.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status, id)
	}

	jobs := f.notifier.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"sup"}, jobs[0].recipients)
	assert.Contains(t, jobs[0].content.Message, "Sam")
	assert.Contains(t, jobs[0].content.Message, "2 task(s)")
}

func TestEmployeeClockOut_NothingToPause(t *testing.T) {
	f := newFixture(t)
	f.employee(t, model.Employee{ID: "sup", Role: model.RoleSupervisor, Status: model.EmployeeActive})

	require.NoError(t, f.h.EmployeeClockOut(context.Background(), events.EmployeeClockOutEvent{EmployeeID: "e1"}))
	assert.Empty(t, f.notifier.all())
}

func TestNoteHandlers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.employee(t, model.Employee{ID: "mgr", Role: model.RoleManager, Status: model.EmployeeActive})
	f.employee(t, model.Employee{ID: "sup", Role: model.RoleSupervisor, Status: model.EmployeeActive})

	require.NoError(t, f.h.NoteIncidentCreated(ctx, events.NoteIncidentCreatedEvent{NoteID: "n1", Content: "Broken window"}))
	require.NoError(t, f.h.NoteFollowUpDue(ctx, events.NoteFollowUpDueEvent{NoteID: "n2", AssignedTo: "sup", Content: "Call plumber"}))
	require.NoError(t, f.h.NoteFollowUpDue(ctx, events.NoteFollowUpDueEvent{NoteID: "n3", Content: "unassigned"}))

	assert.Equal(t, []string{"mgr"}, f.notifier.recipientsOf(model.NotifyIncidentReported))
	assert.Equal(t, []string{"sup"}, f.notifier.recipientsOf(model.NotifyFollowUpDue))
}

func TestRegister_SubscribesEveryEvent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.New(bus.Options{})
	defer b.Close()
	f := newFixture(t)

	_, err := Register(b, Deps{Suites: f.store, Tasks: f.store, Employees: f.store, Notifier: f.notifier, Publisher: b})
	require.NoError(t, err)

	for _, name := range events.Names() {
		assert.NotEmpty(t, b.Subscriptions(name), "no handler for %s", name)
	}

	_, err = Register(b, Deps{Suites: f.store, Tasks: f.store, Employees: f.store, Notifier: f.notifier})
	require.ErrorIs(t, err, bus.ErrDuplicateHandler)
}

func TestRegister_DirtySuiteFlowsThroughBus(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := bus.New(bus.Options{})
	defer b.Close()
	f := newFixture(t)
	f.suite(t, "s1", "101", model.SuiteVacantDirty)

	_, err := Register(b, Deps{Suites: f.store, Tasks: f.store, Employees: f.store, Notifier: f.notifier, Publisher: b})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), events.SuiteStatusChangedEvent{
		SuiteID: "s1", PreviousStatus: model.SuiteVacantClean, NewStatus: model.SuiteVacantDirty,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))

	assert.Len(t, f.openCleaningTasks(t, "s1"), 1)
}
