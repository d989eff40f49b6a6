package events

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// Publisher appends a row directly to events_queue, bypassing SQL triggers.
// Used by scanners and the diagnostics smoke harness to record synthetic
// events without needing a live write-side table mutation.
type Publisher interface {
	Append(ctx context.Context, kind string, payload map[string]any) (seq int64, err error)
}

// SQLPublisher is the production Publisher backed by the catalog database.
type SQLPublisher struct {
	db *sql.DB
}

// NewSQLPublisher wraps an open catalog database connection.
func NewSQLPublisher(db *sql.DB) *SQLPublisher {
	return &SQLPublisher{db: db}
}

// Append inserts a row into events_queue and returns its assigned seq.
func (p *SQLPublisher) Append(ctx context.Context, kind string, payload map[string]any) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "marshal event payload", err)
	}

	result, err := p.db.ExecContext(ctx,
		`INSERT INTO events_queue (kind, payload_json) VALUES (?, ?)`, kind, string(raw))
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "append event", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "read event seq", err)
	}
	return seq, nil
}
