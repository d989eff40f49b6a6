package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTextPreview(t *testing.T, svc *Service, docID, preview string, verified bool, confidence float64) {
	t.Helper()
	_, err := svc.catalog.Conn().Exec(
		`INSERT INTO textlite_previews (doc_id, preview, verified, confidence) VALUES (?, ?, ?, ?)`,
		docID, preview, verified, confidence)
	require.NoError(t, err)
}

func TestListTextLite_ReturnsAllPreviews(t *testing.T) {
	svc, _ := newTestService(t)
	seedTextPreview(t, svc, "doc1", "hello", false, 0.2)
	seedTextPreview(t, svc, "doc2", "world", true, 0.9)

	page, err := svc.ListTextLite(context.Background(), Pagination{Limit: 10})

	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
}

func TestListVerifiedText_FiltersUnverified(t *testing.T) {
	svc, _ := newTestService(t)
	seedTextPreview(t, svc, "doc1", "hello", false, 0.2)
	seedTextPreview(t, svc, "doc2", "world", true, 0.9)

	page, err := svc.ListVerifiedText(context.Background(), Pagination{Limit: 10})

	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "doc2", page.Results[0].DocID)
}

func TestDocPreview_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.DocPreview(context.Background(), "missing")

	require.Error(t, err)
}

func TestDocPreview_Found(t *testing.T) {
	svc, _ := newTestService(t)
	seedTextPreview(t, svc, "doc1", "hello", true, 0.75)

	tp, err := svc.DocPreview(context.Background(), "doc1")

	require.NoError(t, err)
	assert.Equal(t, "hello", tp.Preview)
	assert.True(t, tp.Verified)
}

func TestListMusic_PinsAudioCategory(t *testing.T) {
	svc, _ := newTestService(t)
	seedInventory(t, svc, 2)
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)
	_, err = shard.Conn().Exec(
		`INSERT INTO inventory (id, path, size_bytes, mtime_utc, ext, mime, category, drive_label)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(999), "/music/track.mp3", int64(500), "2026-01-01T00:00:00Z", "mp3", "audio/mpeg", "audio", "A")
	require.NoError(t, err)

	page, err := svc.ListMusic(context.Background(), "A", InventoryFilter{}, Pagination{Limit: 10})

	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "/music/track.mp3", page.Results[0].Path)
}
