package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCatalog_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "catalog.db")

	db, err := OpenCatalog(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.Ping(context.Background()))

	var name string
	err = db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='drives'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "drives", name)
}

func TestKnownDrive_UnknownReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := OpenCatalog(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	known, err := db.KnownDrive(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestOpenShardReadOnly_UnknownDrive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := OpenCatalog(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.OpenShardReadOnly(context.Background(), "ghost")
	require.Error(t, err)
}

func TestOpenShardReadOnly_KnownDriveMissingShard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := OpenCatalog(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Conn().Exec(`INSERT INTO drives (label, shard_path) VALUES (?, ?)`, "A", db.ShardPathFor("A"))
	require.NoError(t, err)

	_, err = db.OpenShardReadOnly(context.Background(), "A")
	require.Error(t, err)
}

func TestSafeLabel(t *testing.T) {
	assert.Equal(t, "My_Drive-1", SafeLabel("My Drive-1"))
	assert.Equal(t, "drive", SafeLabel(""))
	assert.Equal(t, "___", SafeLabel("!!!"))
}

func TestShardPool_EvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.db")
	db, err := OpenCatalog(catalogPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	for _, label := range []string{"A", "B", "C"} {
		shardPath := db.ShardPathFor(label)
		require.NoError(t, MigrateShard(ctx, shardPath))
		_, err := db.Conn().Exec(`INSERT INTO drives (label, shard_path) VALUES (?, ?)`, label, shardPath)
		require.NoError(t, err)
	}

	pool := NewShardPool(db, 2)
	defer func() { _ = pool.CloseAll() }()

	_, err = pool.Get(ctx, "A")
	require.NoError(t, err)
	_, err = pool.Get(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())

	_, err = pool.Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())
}
