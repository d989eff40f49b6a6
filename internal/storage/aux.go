package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// OpenAuxiliary opens a writable SQLite database outside the catalog/shard
// scheme, for components that own their own schema and lifecycle — the
// realtime monitor's web_metrics.db and the scheduler's orchestrator.db.
// It registers the same BASENAME-capable driver and applies the same WAL
// journaling as OpenCatalog, but does not run any migration.
func OpenAuxiliary(path string) (*sql.DB, error) {
	registerDriver()

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "create auxiliary database directory", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "open auxiliary database", err)
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
