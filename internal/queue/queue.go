// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queue is the durable job queue backing the worker. Jobs live in a
// SQLite database so they survive restarts; dequeue takes a time-bounded
// lease, failed jobs retry with exponential backoff, and exhausted jobs land
// in a dead-letter table exactly once.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/plan-engine/pkg/types"
)

// ErrNoJob is returned by Dequeue when nothing is claimable right now.
var ErrNoJob = errors.New("no job available")

// Job statuses as stored.
const (
	statusPending   = "pending"
	statusLeased    = "leased"
	statusCompleted = "completed"
	statusDead      = "dead"
)

// now is a variable so tests can control lease expiry without sleeping.
var now = time.Now

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	path            TEXT NOT NULL,
	draft_ref       TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	attempts        INTEGER NOT NULL DEFAULT 0,
	max_attempts    INTEGER NOT NULL,
	locked_until    INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL DEFAULT 0,
	progress        TEXT NOT NULL DEFAULT '',
	last_error      TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_claimable ON jobs (status, next_attempt_at, locked_until);

CREATE TABLE IF NOT EXISTS dead_letters (
	job_id     TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	draft_ref  TEXT NOT NULL DEFAULT '',
	attempts   INTEGER NOT NULL,
	reason     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// DeadLetter is one exhausted job as listed from the dead-letter table.
type DeadLetter struct {
	JobID     string    `json:"jobId"`
	Path      string    `json:"path"`
	DraftRef  string    `json:"draftRef,omitempty"`
	Attempts  int       `json:"attempts"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Queue is a SQLite-backed durable job queue.
type Queue struct {
	db  *sql.DB
	cfg types.QueueConfig
	log *zap.Logger
}

// Open opens (or creates) the queue database and applies the schema.
func Open(cfg types.QueueConfig, log *zap.Logger) (*Queue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening queue database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing queue schema: %w", err)
	}
	return &Queue{db: db, cfg: cfg, log: log}, nil
}

// Enqueue inserts a new pending job. Re-enqueueing an existing ID is an
// error; job IDs are unique for the lifetime of the queue.
func (q *Queue) Enqueue(ctx context.Context, job types.Job) error {
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.cfg.MaxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	ts := now().UnixMilli()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO jobs (id, path, draft_ref, status, max_attempts, next_attempt_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Path), job.DraftRef, statusPending, maxAttempts, ts, ts, ts)
	if err != nil {
		return fmt.Errorf("enqueueing job %s: %w", job.ID, err)
	}
	q.log.Info("job enqueued", zap.String("jobId", job.ID), zap.String("path", string(job.Path)))
	return nil
}

// Dequeue claims the oldest runnable job under a lease. Runnable means
// pending with its backoff elapsed, or leased with an expired lock (a worker
// died mid-job). The claim bumps the attempt counter.
func (q *Queue) Dequeue(ctx context.Context) (types.Job, error) {
	lock := q.cfg.LockDuration
	if lock <= 0 {
		lock = 5 * time.Minute
	}
	ts := now().UnixMilli()

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Job{}, fmt.Errorf("claiming job: %w", err)
	}
	defer tx.Rollback()

	var job types.Job
	var path string
	err = tx.QueryRowContext(ctx,
		`SELECT id, path, draft_ref, attempts, max_attempts FROM jobs
		 WHERE (status = ? AND next_attempt_at <= ?)
		    OR (status = ? AND locked_until <= ?)
		 ORDER BY created_at
		 LIMIT 1`,
		statusPending, ts, statusLeased, ts,
	).Scan(&job.ID, &path, &job.DraftRef, &job.Attempts, &job.MaxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Job{}, ErrNoJob
	}
	if err != nil {
		return types.Job{}, fmt.Errorf("claiming job: %w", err)
	}
	job.Path = types.PipelinePath(path)

	job.Attempts++
	_, err = tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, attempts = ?, locked_until = ?, updated_at = ? WHERE id = ?`,
		statusLeased, job.Attempts, now().Add(lock).UnixMilli(), ts, job.ID)
	if err != nil {
		return types.Job{}, fmt.Errorf("leasing job %s: %w", job.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Job{}, fmt.Errorf("leasing job %s: %w", job.ID, err)
	}

	q.log.Info("job claimed",
		zap.String("jobId", job.ID), zap.Int("attempt", job.Attempts), zap.Int("maxAttempts", job.MaxAttempts))
	return job, nil
}

// Complete marks a leased job as done.
func (q *Queue) Complete(ctx context.Context, jobID string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, locked_until = 0, updated_at = ? WHERE id = ? AND status = ?`,
		statusCompleted, now().UnixMilli(), jobID, statusLeased)
	if err != nil {
		return fmt.Errorf("completing job %s: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("completing job %s: not leased", jobID)
	}
	q.log.Info("job completed", zap.String("jobId", jobID))
	return nil
}

// Fail records a failed attempt. While attempts remain the job goes back to
// pending with exponential backoff (base × 2^(attempt-1)); once exhausted it
// moves to the dead-letter table, exactly once, and stays terminal. The
// returned flag reports whether this failure dead-lettered the job, so the
// caller publishes the terminal "failed" event once, never per retry.
func (q *Queue) Fail(ctx context.Context, jobID, reason string) (bool, error) {
	base := q.cfg.RetryBackoffBase
	if base <= 0 {
		base = 30 * time.Second
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failing job %s: %w", jobID, err)
	}
	defer tx.Rollback()

	var path, draftRef string
	var attempts, maxAttempts int
	err = tx.QueryRowContext(ctx,
		`SELECT path, draft_ref, attempts, max_attempts FROM jobs WHERE id = ? AND status = ?`,
		jobID, statusLeased,
	).Scan(&path, &draftRef, &attempts, &maxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failing job %s: not leased", jobID)
	}
	if err != nil {
		return false, fmt.Errorf("failing job %s: %w", jobID, err)
	}

	ts := now().UnixMilli()
	if attempts >= maxAttempts {
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, locked_until = 0, last_error = ?, updated_at = ? WHERE id = ?`,
			statusDead, reason, ts, jobID); err != nil {
			return false, fmt.Errorf("burying job %s: %w", jobID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dead_letters (job_id, path, draft_ref, attempts, reason, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			jobID, path, draftRef, attempts, reason, ts); err != nil {
			return false, fmt.Errorf("burying job %s: %w", jobID, err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("burying job %s: %w", jobID, err)
		}
		q.log.Warn("job dead-lettered",
			zap.String("jobId", jobID), zap.Int("attempts", attempts), zap.String("reason", reason))
		return true, nil
	}

	backoff := time.Duration(math.Pow(2, float64(attempts-1))) * base
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, locked_until = 0, next_attempt_at = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		statusPending, now().Add(backoff).UnixMilli(), reason, ts, jobID); err != nil {
		return false, fmt.Errorf("rescheduling job %s: %w", jobID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("rescheduling job %s: %w", jobID, err)
	}
	q.log.Warn("job failed, retrying",
		zap.String("jobId", jobID), zap.Int("attempt", attempts),
		zap.Duration("backoff", backoff), zap.String("reason", reason))
	return false, nil
}

// UpdateProgress stores the latest progress event on the job row so clients
// without a websocket can poll it.
func (q *Queue) UpdateProgress(ctx context.Context, jobID string, ev types.ProgressEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding progress for job %s: %w", jobID, err)
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?`,
		string(data), now().UnixMilli(), jobID)
	if err != nil {
		return fmt.Errorf("storing progress for job %s: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storing progress for job %s: unknown job", jobID)
	}
	return nil
}

// GetProgress returns the last stored progress event for the job.
func (q *Queue) GetProgress(ctx context.Context, jobID string) (types.ProgressEvent, error) {
	var raw string
	err := q.db.QueryRowContext(ctx,
		`SELECT progress FROM jobs WHERE id = ?`, jobID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ProgressEvent{}, ErrNoJob
	}
	if err != nil {
		return types.ProgressEvent{}, fmt.Errorf("reading progress for job %s: %w", jobID, err)
	}
	if raw == "" {
		return types.ProgressEvent{JobID: jobID}, nil
	}
	var ev types.ProgressEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return types.ProgressEvent{}, fmt.Errorf("decoding progress for job %s: %w", jobID, err)
	}
	return ev, nil
}

// DeadLetters lists exhausted jobs, newest first.
func (q *Queue) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT job_id, path, draft_ref, attempts, reason, created_at
		 FROM dead_letters ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		var ts int64
		if err := rows.Scan(&dl.JobID, &dl.Path, &dl.DraftRef, &dl.Attempts, &dl.Reason, &ts); err != nil {
			return nil, fmt.Errorf("listing dead letters: %w", err)
		}
		dl.CreatedAt = time.UnixMilli(ts)
		out = append(out, dl)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.db.Close()
}
