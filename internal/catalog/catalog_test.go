package catalog

import (
	"context"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videocatalog/videocatalog/internal/storage"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	catalogDB, err := storage.OpenCatalog(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalogDB.Close() })

	shardPath := catalogDB.ShardPathFor("A")
	require.NoError(t, storage.MigrateShard(context.Background(), shardPath))
	_, err = catalogDB.Conn().Exec(`INSERT INTO drives (label, shard_path) VALUES (?, ?)`, "A", shardPath)
	require.NoError(t, err)

	pool := storage.NewShardPool(catalogDB, 4)
	t.Cleanup(func() { _ = pool.CloseAll() })

	svc := New(catalogDB, pool, 50, 500)
	return svc, shardPath
}

func seedInventory(t *testing.T, svc *Service, rows int) {
	t.Helper()
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err := shard.Conn().Exec(
			`INSERT INTO inventory (id, path, size_bytes, mtime_utc, ext, mime, category, drive_label)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(i), "/movies/file"+paddedIndex(i)+".mkv", int64(1000+i), "2026-01-01T00:00:00Z",
			"mkv", "video/x-matroska", "video", "A")
		require.NoError(t, err)
	}
}

func paddedIndex(i int) string {
	s := ""
	if i < 10 {
		s = "0"
	}
	return s + string(rune('0'+i%10))
}

func TestListInventory_PaginatesWithOverfetch(t *testing.T) {
	svc, _ := newTestService(t)
	seedInventory(t, svc, 5)

	page, err := svc.ListInventory(context.Background(), "A", InventoryFilter{}, Pagination{Limit: 2})

	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.NextOffset)
	assert.Equal(t, 2, *page.NextOffset)
}

func TestListInventory_LastPageHasNoNextOffset(t *testing.T) {
	svc, _ := newTestService(t)
	seedInventory(t, svc, 3)

	page, err := svc.ListInventory(context.Background(), "A", InventoryFilter{}, Pagination{Limit: 10})

	require.NoError(t, err)
	assert.Len(t, page.Results, 3)
	assert.Nil(t, page.NextOffset)
}

func TestListInventory_CategoryFilter(t *testing.T) {
	svc, _ := newTestService(t)
	seedInventory(t, svc, 2)
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)
	_, err = shard.Conn().Exec(
		`INSERT INTO inventory (id, path, size_bytes, mtime_utc, ext, mime, category, drive_label)
		 VALUES (99, '/docs/readme.txt', 10, '2026-01-01T00:00:00Z', 'txt', 'text/plain', 'document', 'A')`)
	require.NoError(t, err)

	page, err := svc.ListInventory(context.Background(), "A", InventoryFilter{Category: "Document"}, Pagination{Limit: 10})

	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "/docs/readme.txt", page.Results[0].Path)
}

func TestGetInventoryByPath_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetInventoryByPath(context.Background(), "A", "/missing.mkv")

	require.Error(t, err)
}

func TestFetchVector_DecodesLittleEndianFloats(t *testing.T) {
	svc, _ := newTestService(t)
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)

	values := []float32{0.25, -1.5, 3.0}
	blob := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	_, err = shard.Conn().Exec(
		`INSERT INTO features (doc_id, kind, dim, vector, updated_utc) VALUES (?, ?, ?, ?, ?)`,
		"movie:m1", "clip", len(values), blob, "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	fv, err := svc.FetchVector(context.Background(), "A", "movie:m1", "clip", false)

	require.NoError(t, err)
	assert.Equal(t, values, fv.Vector)
}

func TestFetchVector_RequiresRawAboveInlineDim(t *testing.T) {
	svc, _ := newTestService(t)
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)

	blob := make([]byte, (vectorInlineDim+1)*4)
	_, err = shard.Conn().Exec(
		`INSERT INTO features (doc_id, kind, dim, vector, updated_utc) VALUES (?, ?, ?, ?, ?)`,
		"movie:m2", "clip", vectorInlineDim+1, blob, "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	_, err = svc.FetchVector(context.Background(), "A", "movie:m2", "clip", false)
	require.Error(t, err)

	_, err = svc.FetchVector(context.Background(), "A", "movie:m2", "clip", true)
	require.NoError(t, err)
}

func TestOverview_AggregatesInventory(t *testing.T) {
	svc, _ := newTestService(t)
	seedInventory(t, svc, 4)

	ov, err := svc.Overview(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, int64(4), ov.FileCount)
}

func TestTopExtensions_DenseRanksTies(t *testing.T) {
	svc, _ := newTestService(t)
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)
	entries := []struct {
		ext  string
		size int64
	}{{"mkv", 10}, {"mp4", 10}, {"avi", 5}}
	for i, e := range entries {
		_, err := shard.Conn().Exec(
			`INSERT INTO inventory (id, path, size_bytes, mtime_utc, ext, mime, category, drive_label)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(i), "/f"+e.ext, e.size, "2026-01-01T00:00:00Z", e.ext, "video/x", "video", "A")
		require.NoError(t, err)
	}

	ranks, err := svc.TopExtensions(context.Background(), "A", true, 10)

	require.NoError(t, err)
	require.Len(t, ranks, 3)
	assert.Equal(t, 1, ranks[0].Rank)
	assert.Equal(t, 1, ranks[1].Rank)
	assert.Equal(t, 2, ranks[2].Rank)
}

func TestHeaviestFolders_AggregatesByDepth(t *testing.T) {
	svc, _ := newTestService(t)
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)
	paths := []string{"/movies/a/one.mkv", "/movies/a/two.mkv", "/movies/b/three.mkv"}
	for i, p := range paths {
		_, err := shard.Conn().Exec(
			`INSERT INTO inventory (id, path, size_bytes, mtime_utc, ext, mime, category, drive_label)
			 VALUES (?, ?, 100, '2026-01-01T00:00:00Z', 'mkv', 'video/x', 'video', 'A')`, int64(i), p)
		require.NoError(t, err)
	}

	folders, err := svc.HeaviestFolders(context.Background(), "A", 2, 10)

	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, int64(200), folders[0].TotalBytes)
}

func TestRecentChanges_FiltersByWindow(t *testing.T) {
	svc, _ := newTestService(t)
	shard, err := svc.shards.Get(context.Background(), "A")
	require.NoError(t, err)
	old := time.Now().UTC().AddDate(0, 0, -30).Format(time.RFC3339)
	recent := time.Now().UTC().Format(time.RFC3339)
	_, err = shard.Conn().Exec(
		`INSERT INTO inventory (id, path, size_bytes, mtime_utc, ext, mime, category, drive_label)
		 VALUES (1, '/old.mkv', 1, ?, 'mkv', 'video/x', 'video', 'A')`, old)
	require.NoError(t, err)
	_, err = shard.Conn().Exec(
		`INSERT INTO inventory (id, path, size_bytes, mtime_utc, ext, mime, category, drive_label)
		 VALUES (2, '/new.mkv', 1, ?, 'mkv', 'video/x', 'video', 'A')`, recent)
	require.NoError(t, err)

	changes, err := svc.RecentChanges(context.Background(), "A", 7, 10)

	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "/new.mkv", changes[0].Path)
}

func TestListDrives_DerivesShardPath(t *testing.T) {
	svc, shardPath := newTestService(t)

	drives, err := svc.ListDrives(context.Background())

	require.NoError(t, err)
	require.Len(t, drives, 1)
	assert.Equal(t, shardPath, drives[0].ShardPath)
}
