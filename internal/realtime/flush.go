package realtime

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/logging"
)

const defaultFlushInterval = 10 * time.Second

// Flusher periodically persists a Monitor's snapshot into a dedicated
// metrics SQLite database, independent of the broker's poll cadence, so
// the last known values survive a process restart.
type Flusher struct {
	monitor  *Monitor
	db       *sql.DB
	interval time.Duration
}

// NewFlusher builds a Flusher. db should be opened with
// storage.OpenAuxiliary and already migrated via EnsureSchema.
func NewFlusher(monitor *Monitor, db *sql.DB, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Flusher{monitor: monitor, db: db, interval: interval}
}

// EnsureSchema creates the web_metrics table if absent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS web_metrics (
		ts_utc TEXT NOT NULL,
		series TEXT NOT NULL,
		labels_json TEXT NOT NULL DEFAULT '{}',
		value REAL NOT NULL
	)`)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "create web_metrics table", err)
	}
	return nil
}

// Serve runs the flush loop until ctx is canceled, satisfying
// suture.Service.
func (f *Flusher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.flush(ctx); err != nil {
				logging.Err(err).Msg("realtime metrics flush failed")
			}
		}
	}
}

func (f *Flusher) flush(ctx context.Context) error {
	now := time.Now().UTC()
	snapshots := f.monitor.Snapshot(now)

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "begin metrics flush", err)
	}
	defer func() { _ = tx.Rollback() }()

	tsUTC := now.Format(time.RFC3339)
	for _, s := range snapshots {
		labels := s.Labels
		if labels == nil {
			labels = map[string]string{}
		}
		labelsJSON, err := json.Marshal(labels)
		if err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "marshal metric labels", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO web_metrics (ts_utc, series, labels_json, value) VALUES (?, ?, ?, ?)`,
			tsUTC, s.Series, string(labelsJSON), s.Value); err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "insert metric snapshot row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "commit metrics flush", err)
	}
	return nil
}
