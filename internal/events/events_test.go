package events

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videocatalog/videocatalog/internal/storage"
)

func openTestCatalog(t *testing.T) *storage.CatalogDB {
	t.Helper()
	db, err := storage.OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_CreatesTriggersForEveryTable(t *testing.T) {
	db := openTestCatalog(t)

	require.NoError(t, Migrate(context.Background(), db.Conn()))

	for _, spec := range triggerSpecs {
		var count int
		err := db.Conn().QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='trigger' AND name IN (?, ?)`,
			"trg_"+spec.table+"_insert", "trg_"+spec.table+"_update",
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 2, count, spec.table)
	}
}

func TestTrigger_InsertAppendsEventAndPendingVector(t *testing.T) {
	db := openTestCatalog(t)
	require.NoError(t, Migrate(context.Background(), db.Conn()))

	_, err := db.Conn().Exec(`INSERT INTO movies (id, title, year, path) VALUES (?, ?, ?, ?)`,
		"m1", "Arrival", 2016, "/media/arrival.mkv")
	require.NoError(t, err)

	var kind, payload string
	err = db.Conn().QueryRow(`SELECT kind, payload_json FROM events_queue ORDER BY seq DESC LIMIT 1`).
		Scan(&kind, &payload)
	require.NoError(t, err)
	assert.Equal(t, "catalog.movie.upsert", kind)
	assert.Contains(t, payload, "Arrival")

	var docID string
	err = db.Conn().QueryRow(`SELECT doc_id FROM vectors_pending WHERE doc_id = ?`, "movie:m1").Scan(&docID)
	require.NoError(t, err)
	assert.Equal(t, "movie:m1", docID)
}

func TestSQLPublisher_Append(t *testing.T) {
	db := openTestCatalog(t)
	pub := NewSQLPublisher(db.Conn())

	seq, err := pub.Append(context.Background(), "scan.completed", map[string]any{"drive": "A"})

	require.NoError(t, err)
	assert.Greater(t, seq, int64(0))
}
