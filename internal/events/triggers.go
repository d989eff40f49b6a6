package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// triggerSpec describes one write-side table that should append to
// events_queue and upsert vectors_pending on every insert/update. New
// write-side tables only need one new entry here instead of a hand-written
// trigger pair, matching the teacher's declarative table-list schema
// pattern.
type triggerSpec struct {
	table     string
	kind      string
	columns   []string
	docIDExpr string
}

var triggerSpecs = []triggerSpec{
	{table: "movies", kind: "movie", columns: []string{"id", "title", "year", "path"}, docIDExpr: "'movie:' || NEW.id"},
	{table: "tv_series", kind: "tv", columns: []string{"id", "title"}, docIDExpr: "'tv_series:' || NEW.id"},
	{table: "tv_episodes", kind: "tv", columns: []string{"id", "series_id", "season", "episode", "title", "path"}, docIDExpr: "'tv_episode:' || NEW.id"},
	{table: "quality_rows", kind: "quality", columns: []string{"doc_id", "resolution", "codec", "bitrate_kbps"}, docIDExpr: "NEW.doc_id"},
	{table: "textlite_previews", kind: "textlite", columns: []string{"doc_id", "preview"}, docIDExpr: "NEW.doc_id"},
}

// Migrate creates (if absent) the AFTER INSERT / AFTER UPDATE trigger pair
// for every registered triggerSpec. It is idempotent and safe to call on
// every catalog database open.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, spec := range triggerSpecs {
		for _, op := range []string{"INSERT", "UPDATE"} {
			stmt := spec.triggerDDL(op)
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return catalogerr.Wrap(catalogerr.KindInternal,
					fmt.Sprintf("create trigger for %s AFTER %s", spec.table, op), err)
			}
		}
	}
	return nil
}

func (s triggerSpec) triggerDDL(op string) string {
	name := fmt.Sprintf("trg_%s_%s", s.table, strings.ToLower(op))
	eventKind := fmt.Sprintf("catalog.%s.upsert", s.kind)

	jsonPairs := make([]string, 0, len(s.columns)*2)
	for _, col := range s.columns {
		jsonPairs = append(jsonPairs, fmt.Sprintf("'%s'", col), "NEW."+col)
	}

	return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s AFTER %s ON %s BEGIN
  INSERT INTO events_queue (kind, payload_json) VALUES ('%s', json_object(%s));
  INSERT INTO vectors_pending (doc_id, kind, ts_utc) VALUES (%s, '%s', strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ','now'))
    ON CONFLICT(doc_id) DO UPDATE SET ts_utc = excluded.ts_utc;
END;`, name, op, s.table, eventKind, strings.Join(jsonPairs, ", "), s.docIDExpr, s.kind)
}
