package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// ShardDB wraps a read-only per-drive SQLite database holding inventory,
// features and per-drive structure/quality/textlite tables.
type ShardDB struct {
	conn  *sql.DB
	Label string
	Path  string
}

var unsafeLabelChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SafeLabel sanitizes a drive label into a filesystem-safe shard file stem:
// alphanumerics, '_' and '-' pass through, everything else becomes '_', and
// an empty result falls back to "drive".
func SafeLabel(label string) string {
	safe := unsafeLabelChars.ReplaceAllString(label, "_")
	if safe == "" {
		return "drive"
	}
	return safe
}

// OpenShardReadOnly opens the shard database for label, distinguishing
// UNKNOWN_DRIVE (label not present in the catalog's drives registry) from
// SHARD_MISSING (known drive, but its shard file does not exist on disk).
func (c *CatalogDB) OpenShardReadOnly(ctx context.Context, label string) (*ShardDB, error) {
	known, err := c.KnownDrive(ctx, label)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, catalogerr.NotFound(fmt.Sprintf("unknown drive %q", label))
	}

	path := c.ShardPathFor(label)
	if _, err := os.Stat(path); err != nil {
		return nil, catalogerr.NotFound(fmt.Sprintf("shard missing for drive %q", label))
	}

	return openShardFile(label, path)
}

// OpenShardWritable opens label's shard file read-write, for the vector
// worker's feature upserts. Unlike OpenShardReadOnly it does not require
// the drive to be registered in the catalog's drives table, since it is
// used by maintenance paths that may run against a shard directly.
func (c *CatalogDB) OpenShardWritable(ctx context.Context, label string) (*ShardDB, error) {
	path := c.ShardPathFor(label)
	if _, err := os.Stat(path); err != nil {
		return nil, catalogerr.NotFound(fmt.Sprintf("shard missing for drive %q", label))
	}

	registerDriver()
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "open shard database for write", err)
	}
	conn.SetMaxOpenConns(1)
	return &ShardDB{conn: conn, Label: label, Path: path}, nil
}

func openShardFile(label, path string) (*ShardDB, error) {
	registerDriver()

	conn, err := sql.Open(driverName, fmt.Sprintf("file:%s?mode=ro&cache=shared", path))
	if err != nil {
		return openShardFallback(label, path)
	}
	if pingErr := conn.Ping(); pingErr != nil {
		_ = conn.Close()
		return openShardFallback(label, path)
	}

	return &ShardDB{conn: conn, Label: label, Path: path}, nil
}

// openShardFallback is used when the URI-mode open fails (older SQLite
// builds without the URI filename extension compiled in); it opens a plain
// DSN and issues PRAGMA query_only=1 to approximate read-only enforcement.
func openShardFallback(label, path string) (*ShardDB, error) {
	registerDriver()

	conn, err := sql.Open(driverName, path)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "open shard database", err)
	}
	if _, err := conn.Exec(`PRAGMA query_only = 1`); err != nil {
		_ = conn.Close()
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "set shard read-only mode", err)
	}

	return &ShardDB{conn: conn, Label: label, Path: path}, nil
}

// Conn returns the underlying *sql.DB for query execution.
func (s *ShardDB) Conn() *sql.DB { return s.conn }

// Close closes the shard connection.
func (s *ShardDB) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
