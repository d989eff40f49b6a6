package scheduler

import (
	"context"
	"database/sql"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		payload_json TEXT NOT NULL DEFAULT '{}',
		priority INTEGER NOT NULL DEFAULT 0,
		resource TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 3,
		lease_owner TEXT,
		lease_utc TEXT,
		heartbeat_utc TEXT,
		not_before_utc TEXT,
		created_utc TEXT NOT NULL,
		started_utc TEXT,
		ended_utc TEXT,
		error_code TEXT,
		error_msg TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_lease_pickup ON jobs (status, resource, priority DESC, id ASC)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_heartbeat ON jobs (status, heartbeat_utc)`,
	`CREATE TABLE IF NOT EXISTS job_checkpoints (
		job_id INTEGER PRIMARY KEY,
		ckpt_json TEXT NOT NULL DEFAULT '{}',
		updated_utc TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resource_locks (
		name TEXT PRIMARY KEY,
		held_by TEXT,
		acquired_utc TEXT
	)`,
}

// EnsureSchema creates the orchestrator tables if absent. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "apply scheduler schema", err)
		}
	}
	return nil
}
