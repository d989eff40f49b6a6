package vectorworker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/storage"
)

func TestPersistShardVectors_WritesDriveScopedDocsIntoShardFeatures(t *testing.T) {
	db := newTestCatalog(t)
	ctx := context.Background()

	shardPath := db.ShardPathFor("A")
	require.NoError(t, storage.MigrateShard(ctx, shardPath))
	_, err := db.Conn().Exec(`INSERT INTO drives (label, shard_path) VALUES (?, ?)`, "A", shardPath)
	require.NoError(t, err)

	docs := []Document{
		{DocID: "movie-1", Text: "a movie", Metadata: map[string]any{"drive": "A"}},
		{DocID: "note-1", Text: "a textlite note"},
	}
	embedder := NewHashEmbedder(16)
	index := NewCosineIndex()
	require.NoError(t, Rebuild(ctx, index, embedder, docs))

	require.NoError(t, PersistShardVectors(ctx, db, index, docs))

	shard, err := db.OpenShardReadOnly(ctx, "A")
	require.NoError(t, err)
	defer func() { _ = shard.Close() }()

	var count int
	require.NoError(t, shard.Conn().QueryRow(`SELECT count(*) FROM features WHERE doc_id = 'movie-1' AND kind = 'semantic'`).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, shard.Conn().QueryRow(`SELECT count(*) FROM features WHERE doc_id = 'note-1'`).Scan(&count))
	assert.Equal(t, 0, count)
}

type stubDocSource struct {
	docs []Document
}

func (s *stubDocSource) CollectDocuments(ctx context.Context, perTableBudget int) ([]Document, error) {
	return s.docs, nil
}

type stubScheduler struct {
	active       bool
	enqueueCalls int
	lastPayload  map[string]any
}

func (s *stubScheduler) HasActiveJobOfKind(ctx context.Context, kind string) (bool, error) {
	return s.active, nil
}

func (s *stubScheduler) Enqueue(ctx context.Context, kind string, payload map[string]any, priority int, resource models.ResourceClass, maxAttempts int) (int64, error) {
	s.enqueueCalls++
	s.lastPayload = payload
	return 1, nil
}

func newTestCatalog(t *testing.T) *storage.CatalogDB {
	t.Helper()
	db, err := storage.OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedPending(t *testing.T, db *storage.CatalogDB, docID, kind string) {
	t.Helper()
	_, err := db.Conn().Exec(
		`INSERT INTO vectors_pending (doc_id, kind, ts_utc) VALUES (?, ?, datetime('now'))`, docID, kind)
	require.NoError(t, err)
}

func TestDrainOnce_NoOrchestrator_RebuildsIndexInProcess(t *testing.T) {
	db := newTestCatalog(t)
	seedPending(t, db, "doc-1", "textlite")
	seedPending(t, db, "doc-2", "music")

	docs := &stubDocSource{docs: []Document{{DocID: "doc-1", Text: "alpha beta"}}}
	index := NewCosineIndex()
	indexPath := filepath.Join(t.TempDir(), "index.json")

	w := New(db, nil, docs, NewHashEmbedder(32), index, indexPath, 100)
	n, err := w.drainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, index.Len())

	var remaining int
	require.NoError(t, db.Conn().QueryRow(`SELECT count(*) FROM vectors_pending`).Scan(&remaining))
	assert.Equal(t, 0, remaining)
}

func TestDrainOnce_WithOrchestrator_EnqueuesDedupedJob(t *testing.T) {
	db := newTestCatalog(t)
	seedPending(t, db, "doc-1", "textlite")

	sched := &stubScheduler{active: false}
	w := New(db, nil, &stubDocSource{}, NewHashEmbedder(32), NewCosineIndex(), "", 100)
	w.sched = sched

	n, err := w.drainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, sched.enqueueCalls)
	assert.Equal(t, []string{"doc-1"}, sched.lastPayload["doc_ids"])
}

func TestDrainOnce_WithOrchestrator_SkipsEnqueueWhenAlreadyActive(t *testing.T) {
	db := newTestCatalog(t)
	seedPending(t, db, "doc-1", "textlite")

	sched := &stubScheduler{active: true}
	w := New(db, nil, &stubDocSource{}, NewHashEmbedder(32), NewCosineIndex(), "", 100)
	w.sched = sched

	_, err := w.drainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sched.enqueueCalls)
}

func TestDrainOnce_EmptyQueueIsNoop(t *testing.T) {
	db := newTestCatalog(t)
	w := New(db, nil, &stubDocSource{}, NewHashEmbedder(32), NewCosineIndex(), "", 100)

	n, err := w.drainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHashEmbedder_IsDeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(16)
	v1, err := e.Embed(context.Background(), []string{"the quick fox"})
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), []string{"the quick fox"})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	var sumSq float32
	for _, x := range v1[0] {
		sumSq += x * x
	}
	assert.InDelta(t, 1.0, sumSq, 0.01)
}

func TestCosineIndex_SearchRanksClosestFirst(t *testing.T) {
	idx := NewCosineIndex()
	idx.Upsert(IndexEntry{DocID: "a", Vector: []float32{1, 0, 0}})
	idx.Upsert(IndexEntry{DocID: "b", Vector: []float32{0, 1, 0}})
	idx.Upsert(IndexEntry{DocID: "c", Vector: []float32{0.9, 0.1, 0}})

	matches := idx.Search([]float32{1, 0, 0}, 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].DocID)
	assert.Equal(t, "c", matches[1].DocID)
}

func TestCosineIndex_SaveAndLoadRoundTrips(t *testing.T) {
	idx := NewCosineIndex()
	idx.Upsert(IndexEntry{DocID: "a", Text: "hello", Vector: []float32{1, 2, 3}})
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, idx.SaveToFile(path))

	loaded := NewCosineIndex()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 1, loaded.Len())
}
