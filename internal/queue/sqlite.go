// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/suiteops/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS queue_jobs (
	id TEXT PRIMARY KEY,
	queue TEXT NOT NULL,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL,
	backoff_type TEXT NOT NULL,
	backoff_delay_ms INTEGER NOT NULL,
	state TEXT NOT NULL,
	run_at_ms INTEGER NOT NULL,
	lease_until_ms INTEGER,
	last_error TEXT NOT NULL DEFAULT '',
	result TEXT,
	created_at_ms INTEGER NOT NULL,
	updated_at_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_jobs_due ON queue_jobs(queue, state, run_at_ms);
CREATE INDEX IF NOT EXISTS idx_queue_jobs_lease ON queue_jobs(queue, state, lease_until_ms);
`

const jobColumns = `id, queue, type, payload, attempts, max_attempts, backoff_type, backoff_delay_ms,
	state, run_at_ms, lease_until_ms, last_error, result, created_at_ms, updated_at_ms`

// SQLiteBackend stores jobs in a polling table. Claims are single UPDATE
// ... RETURNING statements, so concurrent workers in any process sharing
// the file never receive the same job while its lease holds.
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens (or creates) the queue database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, sqliteSchemaVersion, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("queue store: migration failed: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		j                         Job
		payload                   string
		delayMs, runAt            int64
		lease                     sql.NullInt64
		result                    sql.NullString
		createdAt, updatedAt      int64
		backoffType, state, lastE string
	)
	err := row.Scan(&j.ID, &j.Queue, &j.Type, &payload, &j.Attempts, &j.MaxAttempts, &backoffType, &delayMs,
		&state, &runAt, &lease, &lastE, &result, &createdAt, &updatedAt)
	if err != nil {
		return Job{}, err
	}
	j.Payload = json.RawMessage(payload)
	j.Backoff = Backoff{Type: BackoffType(backoffType), Delay: time.Duration(delayMs) * time.Millisecond}
	j.State = State(state)
	j.RunAt = time.UnixMilli(runAt).UTC()
	if lease.Valid {
		l := time.UnixMilli(lease.Int64).UTC()
		j.LeaseUntil = &l
	}
	j.LastError = lastE
	if result.Valid && result.String != "" {
		j.Result = json.RawMessage(result.String)
	}
	j.CreatedAt = time.UnixMilli(createdAt).UTC()
	j.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return j, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, job Job) (Job, bool, error) {
	res, err := b.db.ExecContext(ctx, `
		INSERT INTO queue_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, NULL, '', NULL, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		job.ID, job.Queue, job.Type, string(job.Payload), job.MaxAttempts, string(job.Backoff.Type),
		job.Backoff.Delay.Milliseconds(), string(StateWaiting), job.RunAt.UnixMilli(),
		job.CreatedAt.UnixMilli(), job.UpdatedAt.UnixMilli())
	if err != nil {
		return Job{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Job{}, false, err
	}
	stored, err := b.Get(ctx, job.ID)
	if err != nil {
		return Job{}, false, err
	}
	return stored, n == 1, nil
}

func (b *SQLiteBackend) Claim(ctx context.Context, queue string, now time.Time, lease time.Duration) (Job, bool, error) {
	nowMs := now.UnixMilli()
	row := b.db.QueryRowContext(ctx, `
		UPDATE queue_jobs
		SET state = 'active', attempts = attempts + 1, lease_until_ms = ?, updated_at_ms = ?
		WHERE id = (
			SELECT id FROM queue_jobs
			WHERE queue = ?
			  AND ((state = 'waiting' AND run_at_ms <= ?) OR (state = 'active' AND lease_until_ms <= ?))
			ORDER BY CASE state WHEN 'waiting' THEN 0 ELSE 1 END,
			         CASE state WHEN 'waiting' THEN run_at_ms ELSE lease_until_ms END,
			         id
			LIMIT 1
		)
		RETURNING `+jobColumns,
		now.Add(lease).UnixMilli(), nowMs, queue, nowMs, nowMs)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}
	return j, true, nil
}

func (b *SQLiteBackend) update(ctx context.Context, id, query string, args ...any) error {
	res, err := b.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	return nil
}

func (b *SQLiteBackend) Complete(ctx context.Context, id string, result json.RawMessage, now time.Time) error {
	var res sql.NullString
	if len(result) > 0 {
		res = sql.NullString{String: string(result), Valid: true}
	}
	return b.update(ctx, id,
		`UPDATE queue_jobs SET state = 'completed', result = ?, lease_until_ms = NULL, updated_at_ms = ? WHERE id = ?`,
		res, now.UnixMilli())
}

func (b *SQLiteBackend) Retry(ctx context.Context, id string, runAt time.Time, lastErr string, now time.Time) error {
	return b.update(ctx, id,
		`UPDATE queue_jobs SET state = 'waiting', run_at_ms = ?, last_error = ?, lease_until_ms = NULL, updated_at_ms = ? WHERE id = ?`,
		runAt.UnixMilli(), lastErr, now.UnixMilli())
}

func (b *SQLiteBackend) Fail(ctx context.Context, id string, lastErr string, now time.Time) error {
	return b.update(ctx, id,
		`UPDATE queue_jobs SET state = 'failed', last_error = ?, lease_until_ms = NULL, updated_at_ms = ? WHERE id = ?`,
		lastErr, now.UnixMilli())
}

func (b *SQLiteBackend) Get(ctx context.Context, id string) (Job, error) {
	j, err := scanJob(b.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM queue_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	return j, err
}

func (b *SQLiteBackend) Failed(ctx context.Context, queue string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM queue_jobs
		WHERE queue = ? AND state = 'failed'
		ORDER BY updated_at_ms DESC, id
		LIMIT ?`, queue, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (b *SQLiteBackend) Stats(ctx context.Context, queue string) (Stats, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM queue_jobs WHERE queue = ? GROUP BY state`, queue)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	var s Stats
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return Stats{}, err
		}
		switch State(state) {
		case StateWaiting:
			s.Waiting = n
		case StateActive:
			s.Active = n
		case StateCompleted:
			s.Completed = n
		case StateFailed:
			s.Failed = n
		}
	}
	return s, rows.Err()
}
