package storage

import (
	"database/sql"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
)

const driverName = "videocatalog_sqlite3"

var registerOnce sync.Once

// registerDriver registers a sqlite3 driver variant whose every connection
// exposes BASENAME(path), used throughout the catalog and querybuilder
// packages for case-insensitive filename matching without duplicating the
// logic in every call site's SQL.
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("BASENAME", basename, true)
			},
		})
	})
}

// basename returns the lowercased last path segment, normalizing Windows
// separators to '/' first, matching spec.md's BASENAME(path) contract.
func basename(path string) string {
	normalized := strings.ReplaceAll(path, `\`, "/")
	normalized = strings.TrimRight(normalized, "/")
	idx := strings.LastIndex(normalized, "/")
	if idx >= 0 {
		normalized = normalized[idx+1:]
	}
	return strings.ToLower(normalized)
}
