package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// catalogSchema creates every table and index the catalog database needs on
// first run. Statements are idempotent (IF NOT EXISTS) so migrate can run
// unconditionally on every open.
var catalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS drives (
		label TEXT PRIMARY KEY,
		type TEXT,
		last_scan_utc TEXT,
		shard_path TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_stats (
		drive_label TEXT PRIMARY KEY,
		file_count INTEGER NOT NULL DEFAULT 0,
		total_bytes INTEGER NOT NULL DEFAULT 0,
		updated_utc TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events_queue (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		ts_utc TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		kind TEXT NOT NULL,
		payload_json TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_queue_kind_seq ON events_queue (kind, seq)`,
	`CREATE TABLE IF NOT EXISTS vectors_pending (
		doc_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		ts_utc TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		year INTEGER,
		path TEXT,
		drive_label TEXT,
		duration_seconds INTEGER,
		confidence REAL,
		quality TEXT,
		audio_langs TEXT,
		sub_langs TEXT,
		updated_utc TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS tv_series (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		updated_utc TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS tv_episodes (
		id TEXT PRIMARY KEY,
		series_id TEXT NOT NULL,
		season INTEGER,
		episode INTEGER,
		title TEXT,
		path TEXT,
		updated_utc TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS quality_rows (
		doc_id TEXT PRIMARY KEY,
		resolution TEXT,
		codec TEXT,
		bitrate_kbps INTEGER,
		updated_utc TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS textlite_previews (
		doc_id TEXT PRIMARY KEY,
		preview TEXT,
		verified INTEGER NOT NULL DEFAULT 0,
		confidence REAL,
		updated_utc TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
	`CREATE TABLE IF NOT EXISTS diagnostic_snapshots (
		ts_utc TEXT PRIMARY KEY,
		report_json TEXT NOT NULL
	)`,
}

// migrate creates the catalog schema if absent. The schema carries no
// destructive migrations yet; future structural changes are added as
// additional idempotent statements guarded by a schema_version check,
// mirroring internal/config's migration table.
func (c *CatalogDB) migrate(ctx context.Context) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "begin schema migration", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range catalogSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, fmt.Sprintf("apply schema statement %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "commit schema migration", err)
	}
	return nil
}

// shardSchema creates the inventory and features tables of a per-drive
// shard database. The service opens shards read-only, except for the vector
// worker's feature upserts through OpenShardWritable; this DDL runs only
// from the scanner (out of scope here) or test fixtures that need a
// populated shard.
var shardSchema = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		size_bytes INTEGER NOT NULL,
		mtime_utc TEXT NOT NULL,
		ext TEXT,
		mime TEXT,
		category TEXT,
		drive_label TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_category ON inventory (category)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_mtime ON inventory (mtime_utc)`,
	`CREATE TABLE IF NOT EXISTS features (
		doc_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		dim INTEGER NOT NULL,
		vector BLOB NOT NULL,
		updated_utc TEXT NOT NULL,
		PRIMARY KEY (doc_id, kind)
	)`,
}

// MigrateShard creates the shard schema on a writable connection, creating
// the shard's parent directory if needed, used by test fixtures and the
// scanner to provision a new drive's shard file.
func MigrateShard(ctx context.Context, shardPath string) error {
	registerDriver()

	if err := os.MkdirAll(filepath.Dir(shardPath), 0o750); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "create shard directory", err)
	}

	conn, err := sql.Open(driverName, shardPath)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "open shard for migration", err)
	}
	defer func() { _ = conn.Close() }()

	for i, stmt := range shardSchema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, fmt.Sprintf("apply shard schema statement %d", i), err)
		}
	}
	return nil
}
