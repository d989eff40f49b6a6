package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/logging"
)

// CatalogDB wraps the single writable catalog database: drives registry,
// aggregate stats, event queue, vectors-pending table, catalog content
// tables and diagnostic snapshots. The scheduler's tables live in the
// separate orchestrator database opened with OpenAuxiliary.
type CatalogDB struct {
	conn *sql.DB
	path string
}

// OpenCatalog opens (creating parent directories as needed) the catalog
// database in read-write mode, applies WAL journaling and a minimum busy
// timeout, and ensures the schema is current.
func OpenCatalog(path string) (*CatalogDB, error) {
	registerDriver()

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, catalogerr.Wrap(catalogerr.KindInternal, "create catalog directory", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "open catalog database", err)
	}
	conn.SetMaxOpenConns(1)

	db := &CatalogDB{conn: conn, path: path}
	if err := db.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Conn returns the underlying *sql.DB for packages (events, catalog,
// scheduler) that need direct query access.
func (c *CatalogDB) Conn() *sql.DB { return c.conn }

// Close closes the catalog database connection.
func (c *CatalogDB) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Ping verifies the catalog connection is alive.
func (c *CatalogDB) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

// KnownDrive reports whether label is registered in the drives table,
// distinguishing UNKNOWN_DRIVE from SHARD_MISSING per spec.md §4.2.
func (c *CatalogDB) KnownDrive(ctx context.Context, label string) (bool, error) {
	var exists int
	err := c.conn.QueryRowContext(ctx, `SELECT 1 FROM drives WHERE label = ?`, label).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, catalogerr.Wrap(catalogerr.KindInternal, "query drives registry", err)
	}
	return true, nil
}

// ShardPathFor derives a drive's shard file path, matching SafeLabel's
// sanitization rules.
func (c *CatalogDB) ShardPathFor(label string) string {
	return filepath.Join(filepath.Dir(c.path), "shards", SafeLabel(label)+".db")
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func logQuery(operation, table string, start time.Time, err error) {
	logging.CtxDebug(context.Background()).
		Str("operation", operation).
		Str("table", table).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("storage query")
}
