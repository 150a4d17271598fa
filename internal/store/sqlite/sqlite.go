// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sqlite implements store.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/persistence/sqlite"
	"github.com/ManuGH/suiteops/internal/store"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS suites (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL,
	status TEXT NOT NULL,
	guest_json TEXT,
	last_cleaned_at_ms INTEGER,
	updated_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	suite_id TEXT NOT NULL DEFAULT '',
	assigned_to TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	scheduled_start_ms INTEGER,
	scheduled_end_ms INTEGER,
	started_at_ms INTEGER,
	completed_at_ms INTEGER,
	completed_by TEXT NOT NULL DEFAULT '',
	verified_by TEXT NOT NULL DEFAULT '',
	overdue_notified_at_ms INTEGER,
	created_at_ms INTEGER NOT NULL,
	updated_at_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_suite_status ON tasks(suite_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee_status ON tasks(assigned_to, status);
CREATE INDEX IF NOT EXISTS idx_tasks_scheduled_end ON tasks(scheduled_end_ms);

CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	department TEXT NOT NULL,
	status TEXT NOT NULL,
	clocked_in INTEGER NOT NULL DEFAULT 0,
	tasks_completed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL,
	related_entity_type TEXT NOT NULL DEFAULT '',
	related_entity_id TEXT NOT NULL DEFAULT '',
	action_url TEXT NOT NULL DEFAULT '',
	action_required INTEGER NOT NULL DEFAULT 0,
	read INTEGER NOT NULL DEFAULT 0,
	read_at_ms INTEGER,
	created_at_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read);
CREATE INDEX IF NOT EXISTS idx_notifications_read_created ON notifications(read, created_at_ms);

CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	suite_id TEXT NOT NULL DEFAULT '',
	task_id TEXT NOT NULL DEFAULT '',
	author_id TEXT NOT NULL,
	assigned_to TEXT NOT NULL DEFAULT '',
	follow_up_at_ms INTEGER,
	created_at_ms INTEGER NOT NULL
);
`

// Store implements store.Store using SQLite.
type Store struct {
	DB  *sql.DB
	now func() time.Time

	// writeMu serializes read-modify-write transactions so that a deferred
	// transaction never has to upgrade its lock under contention.
	writeMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("record store: migration failed: %w", err)
	}
	return &Store{DB: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// inTx runs fn in a serialized write transaction.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
}

func msOf(t time.Time) int64 { return t.UnixMilli() }

func timeOf(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMs(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := timeOf(n.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- suites ---

const suiteColumns = `id, number, status, guest_json, last_cleaned_at_ms, updated_at_ms`

func scanSuite(row scanner) (model.Suite, error) {
	var (
		v       model.Suite
		guest   sql.NullString
		cleaned sql.NullInt64
		updated int64
	)
	if err := row.Scan(&v.ID, &v.Number, &v.Status, &guest, &cleaned, &updated); err != nil {
		return model.Suite{}, err
	}
	if guest.Valid && guest.String != "" {
		var g model.Guest
		if err := json.Unmarshal([]byte(guest.String), &g); err != nil {
			return model.Suite{}, fmt.Errorf("decode guest for suite %s: %w", v.ID, err)
		}
		v.Guest = &g
	}
	v.LastCleanedAt = timePtr(cleaned)
	v.UpdatedAt = timeOf(updated)
	return v, nil
}

func guestJSON(g *model.Guest) (sql.NullString, error) {
	if g == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(g)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func getSuite(ctx context.Context, q querier, id string) (model.Suite, error) {
	v, err := scanSuite(q.QueryRowContext(ctx, `SELECT `+suiteColumns+` FROM suites WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Suite{}, notFound("suite", id)
	}
	return v, err
}

func putSuite(ctx context.Context, q querier, v model.Suite) error {
	guest, err := guestJSON(v.Guest)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO suites (`+suiteColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			status = excluded.status,
			guest_json = excluded.guest_json,
			last_cleaned_at_ms = excluded.last_cleaned_at_ms,
			updated_at_ms = excluded.updated_at_ms`,
		v.ID, v.Number, string(v.Status), guest, nullMs(v.LastCleanedAt), msOf(v.UpdatedAt))
	return err
}

func (s *Store) GetSuite(ctx context.Context, id string) (model.Suite, error) {
	return getSuite(ctx, s.DB, id)
}

func (s *Store) PutSuite(ctx context.Context, v model.Suite) error {
	if v.ID == "" {
		return fmt.Errorf("put suite: empty id")
	}
	v.UpdatedAt = s.now()
	return s.inTx(ctx, func(tx *sql.Tx) error { return putSuite(ctx, tx, v) })
}

func (s *Store) UpdateSuite(ctx context.Context, id string, fn store.Mutator[model.Suite]) (model.Suite, error) {
	var out model.Suite
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		v, err := getSuite(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		v.ID = id
		v.UpdatedAt = s.now()
		if err := putSuite(ctx, tx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (s *Store) ListSuites(ctx context.Context) ([]model.Suite, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+suiteColumns+` FROM suites ORDER BY number, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Suite
	for rows.Next() {
		v, err := scanSuite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- tasks ---

const taskColumns = `id, title, description, type, priority, status, suite_id, assigned_to, created_by,
	scheduled_start_ms, scheduled_end_ms, started_at_ms, completed_at_ms, completed_by, verified_by,
	overdue_notified_at_ms, created_at_ms, updated_at_ms`

func scanTask(row scanner) (model.Task, error) {
	var (
		v                                              model.Task
		schedStart, schedEnd, started, completed, over sql.NullInt64
		created, updated                               int64
	)
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.Type, &v.Priority, &v.Status, &v.SuiteID,
		&v.AssignedTo, &v.CreatedBy, &schedStart, &schedEnd, &started, &completed, &v.CompletedBy,
		&v.VerifiedBy, &over, &created, &updated)
	if err != nil {
		return model.Task{}, err
	}
	v.ScheduledStart = timePtr(schedStart)
	v.ScheduledEnd = timePtr(schedEnd)
	v.StartedAt = timePtr(started)
	v.CompletedAt = timePtr(completed)
	v.OverdueNotifiedAt = timePtr(over)
	v.CreatedAt = timeOf(created)
	v.UpdatedAt = timeOf(updated)
	return v, nil
}

func taskArgs(v model.Task) []any {
	return []any{
		v.ID, v.Title, v.Description, string(v.Type), string(v.Priority), string(v.Status), v.SuiteID,
		v.AssignedTo, v.CreatedBy, nullMs(v.ScheduledStart), nullMs(v.ScheduledEnd), nullMs(v.StartedAt),
		nullMs(v.CompletedAt), v.CompletedBy, v.VerifiedBy, nullMs(v.OverdueNotifiedAt),
		msOf(v.CreatedAt), msOf(v.UpdatedAt),
	}
}

func insertTask(ctx context.Context, q querier, v model.Task) error {
	_, err := q.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (`+placeholders(18)+`)`, taskArgs(v)...)
	if isUniqueViolation(err) {
		return fmt.Errorf("task %q: %w", v.ID, store.ErrConflict)
	}
	return err
}

func updateTask(ctx context.Context, q querier, v model.Task) error {
	args := taskArgs(v)
	_, err := q.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, type = ?, priority = ?, status = ?, suite_id = ?,
			assigned_to = ?, created_by = ?, scheduled_start_ms = ?, scheduled_end_ms = ?, started_at_ms = ?,
			completed_at_ms = ?, completed_by = ?, verified_by = ?, overdue_notified_at_ms = ?,
			created_at_ms = ?, updated_at_ms = ?
		WHERE id = ?`, append(args[1:], v.ID)...)
	return err
}

func taskWhere(f store.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if f.SuiteID != "" {
		conds = append(conds, "suite_id = ?")
		args = append(args, f.SuiteID)
	}
	if f.AssignedTo != "" {
		conds = append(conds, "assigned_to = ?")
		args = append(args, f.AssignedTo)
	}
	if len(f.Types) > 0 {
		conds = append(conds, "type IN ("+placeholders(len(f.Types))+")")
		for _, t := range f.Types {
			args = append(args, string(t))
		}
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if f.ScheduledEndBefore != nil {
		conds = append(conds, "scheduled_end_ms IS NOT NULL AND scheduled_end_ms < ?")
		args = append(args, msOf(*f.ScheduledEndBefore))
	}
	if f.OverdueUnnotified {
		conds = append(conds, "overdue_notified_at_ms IS NULL")
	}
	query := ""
	if len(conds) > 0 {
		query = " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at_ms, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return query, args
}

func listTasks(ctx context.Context, q querier, f store.TaskFilter) ([]model.Task, error) {
	where, args := taskWhere(f)
	rows, err := q.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Task
	for rows.Next() {
		v, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func getTask(ctx context.Context, q querier, id string) (model.Task, error) {
	v, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, notFound("task", id)
	}
	return v, err
}

func (s *Store) prepareTask(t model.Task) model.Task {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	return t
}

func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	return getTask(ctx, s.DB, id)
}

func (s *Store) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	t = s.prepareTask(t)
	if err := s.inTx(ctx, func(tx *sql.Tx) error { return insertTask(ctx, tx, t) }); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *Store) CreateTaskUnless(ctx context.Context, t model.Task, guard store.TaskFilter) (model.Task, bool, error) {
	t = s.prepareTask(t)
	var (
		out     model.Task
		created bool
	)
	guard.Limit = 1
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := listTasks(ctx, tx, guard)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			out = existing[0]
			return nil
		}
		if err := insertTask(ctx, tx, t); err != nil {
			return err
		}
		out, created = t, true
		return nil
	})
	if err != nil {
		return model.Task{}, false, err
	}
	return out, created, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, fn store.Mutator[model.Task]) (model.Task, error) {
	var out model.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		v, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		v.ID = id
		v.UpdatedAt = s.now()
		if err := updateTask(ctx, tx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (s *Store) UpdateTasks(ctx context.Context, f store.TaskFilter, fn store.Mutator[model.Task]) (int, error) {
	n := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		matched, err := listTasks(ctx, tx, f)
		if err != nil {
			return err
		}
		now := s.now()
		for _, v := range matched {
			id := v.ID
			if err := fn(&v); err != nil {
				return err
			}
			v.ID = id
			v.UpdatedAt = now
			if err := updateTask(ctx, tx, v); err != nil {
				return err
			}
		}
		n = len(matched)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListTasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error) {
	return listTasks(ctx, s.DB, f)
}

// --- employees ---

const employeeColumns = `id, name, role, department, status, clocked_in, tasks_completed`

func scanEmployee(row scanner) (model.Employee, error) {
	var v model.Employee
	err := row.Scan(&v.ID, &v.Name, &v.Role, &v.Department, &v.Status, &v.ClockedIn, &v.TasksCompleted)
	return v, err
}

func getEmployee(ctx context.Context, q querier, id string) (model.Employee, error) {
	v, err := scanEmployee(q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Employee{}, notFound("employee", id)
	}
	return v, err
}

func putEmployee(ctx context.Context, q querier, v model.Employee) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			department = excluded.department,
			status = excluded.status,
			clocked_in = excluded.clocked_in,
			tasks_completed = excluded.tasks_completed`,
		v.ID, v.Name, string(v.Role), string(v.Department), string(v.Status), boolInt(v.ClockedIn), v.TasksCompleted)
	return err
}

func (s *Store) GetEmployee(ctx context.Context, id string) (model.Employee, error) {
	return getEmployee(ctx, s.DB, id)
}

func (s *Store) PutEmployee(ctx context.Context, e model.Employee) error {
	if e.ID == "" {
		return fmt.Errorf("put employee: empty id")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error { return putEmployee(ctx, tx, e) })
}

func (s *Store) UpdateEmployee(ctx context.Context, id string, fn store.Mutator[model.Employee]) (model.Employee, error) {
	var out model.Employee
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		v, err := getEmployee(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		v.ID = id
		if err := putEmployee(ctx, tx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (s *Store) ListEmployees(ctx context.Context, f store.EmployeeFilter) ([]model.Employee, error) {
	var (
		conds []string
		args  []any
	)
	if len(f.Roles) > 0 {
		conds = append(conds, "role IN ("+placeholders(len(f.Roles))+")")
		for _, r := range f.Roles {
			args = append(args, string(r))
		}
	}
	if len(f.Departments) > 0 {
		conds = append(conds, "department IN ("+placeholders(len(f.Departments))+")")
		for _, d := range f.Departments {
			args = append(args, string(d))
		}
	}
	if f.ExcludeInactive {
		conds = append(conds, "status <> ?")
		args = append(args, string(model.EmployeeInactive))
	}
	if f.OnDuty {
		conds = append(conds, "status IN (?, ?)")
		args = append(args, string(model.EmployeeActive), string(model.EmployeeOnBreak))
	}
	query := `SELECT ` + employeeColumns + ` FROM employees`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := s.DB.QueryContext(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Employee
	for rows.Next() {
		v, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- notifications ---

const notificationColumns = `id, recipient_id, type, title, message, priority, related_entity_type,
	related_entity_id, action_url, action_required, read, read_at_ms, created_at_ms`

func scanNotification(row scanner) (model.Notification, error) {
	var (
		v       model.Notification
		readAt  sql.NullInt64
		created int64
	)
	err := row.Scan(&v.ID, &v.RecipientID, &v.Type, &v.Title, &v.Message, &v.Priority, &v.RelatedEntityType,
		&v.RelatedEntityID, &v.ActionURL, &v.ActionRequired, &v.Read, &readAt, &created)
	if err != nil {
		return model.Notification{}, err
	}
	v.ReadAt = timePtr(readAt)
	v.CreatedAt = timeOf(created)
	return v, nil
}

func (s *Store) prepareNotification(n model.Notification) model.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	return n
}

func insertNotification(ctx context.Context, q querier, n model.Notification) error {
	_, err := q.ExecContext(ctx, `INSERT INTO notifications (`+notificationColumns+`) VALUES (`+placeholders(13)+`)`,
		n.ID, n.RecipientID, string(n.Type), n.Title, n.Message, string(n.Priority), n.RelatedEntityType,
		n.RelatedEntityID, n.ActionURL, boolInt(n.ActionRequired), boolInt(n.Read), nullMs(n.ReadAt), msOf(n.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("notification %q: %w", n.ID, store.ErrConflict)
	}
	return err
}

func (s *Store) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	n = s.prepareNotification(n)
	if err := s.inTx(ctx, func(tx *sql.Tx) error { return insertNotification(ctx, tx, n) }); err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

func (s *Store) CreateNotifications(ctx context.Context, ns []model.Notification) (int, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, n := range ns {
			if err := insertNotification(ctx, tx, s.prepareNotification(n)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ns), nil
}

func (s *Store) ListNotifications(ctx context.Context, f store.NotificationFilter) ([]model.Notification, error) {
	var (
		conds []string
		args  []any
	)
	if f.RecipientID != "" {
		conds = append(conds, "recipient_id = ?")
		args = append(args, f.RecipientID)
	}
	if f.UnreadOnly {
		conds = append(conds, "read = 0")
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at_ms DESC, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		v, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE notifications SET read = 1, read_at_ms = COALESCE(read_at_ms, ?) WHERE id = ?`, msOf(at), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("notification", id)
		}
		return nil
	})
}

func (s *Store) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE read = 1 AND created_at_ms < ?`, msOf(cutoff))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}

// --- notes ---

const noteColumns = `id, type, content, suite_id, task_id, author_id, assigned_to, follow_up_at_ms, created_at_ms`

func scanNote(row scanner) (model.Note, error) {
	var (
		v       model.Note
		follow  sql.NullInt64
		created int64
	)
	if err := row.Scan(&v.ID, &v.Type, &v.Content, &v.SuiteID, &v.TaskID, &v.AuthorID, &v.AssignedTo, &follow, &created); err != nil {
		return model.Note{}, err
	}
	v.FollowUpAt = timePtr(follow)
	v.CreatedAt = timeOf(created)
	return v, nil
}

func (s *Store) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO notes (`+noteColumns+`) VALUES (`+placeholders(9)+`)`,
			n.ID, string(n.Type), n.Content, n.SuiteID, n.TaskID, n.AuthorID, n.AssignedTo, nullMs(n.FollowUpAt), msOf(n.CreatedAt))
		if isUniqueViolation(err) {
			return fmt.Errorf("note %q: %w", n.ID, store.ErrConflict)
		}
		return err
	})
	if err != nil {
		return model.Note{}, err
	}
	return n, nil
}

func (s *Store) GetNote(ctx context.Context, id string) (model.Note, error) {
	v, err := scanNote(s.DB.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Note{}, notFound("note", id)
	}
	return v, err
}

func (s *Store) ListNotes(ctx context.Context, f store.NoteFilter) ([]model.Note, error) {
	var (
		conds []string
		args  []any
	)
	if f.SuiteID != "" {
		conds = append(conds, "suite_id = ?")
		args = append(args, f.SuiteID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.FollowUpBefore != nil {
		conds = append(conds, "follow_up_at_ms IS NOT NULL AND follow_up_at_ms < ?")
		args = append(args, msOf(*f.FollowUpBefore))
	}
	query := `SELECT ` + noteColumns + ` FROM notes`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := s.DB.QueryContext(ctx, query+" ORDER BY created_at_ms, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Note
	for rows.Next() {
		v, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
