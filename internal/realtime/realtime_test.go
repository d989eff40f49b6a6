package realtime

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videocatalog/videocatalog/internal/storage"
)

func TestLagWindow_QuantilesOverSamples(t *testing.T) {
	w := NewLagWindow(2 * time.Minute)
	base := time.Now()

	for _, ms := range []int{10, 20, 30, 40, 50} {
		w.Observe(base.Add(-time.Duration(ms)*time.Millisecond), base)
	}

	p50, p95 := w.Quantiles(base)
	assert.Greater(t, p50, 0.0)
	assert.GreaterOrEqual(t, p95, p50)
}

func TestLagWindow_EvictsOldSamples(t *testing.T) {
	w := NewLagWindow(1 * time.Second)
	base := time.Now()

	w.Observe(base, base)
	p50, p95 := w.Quantiles(base.Add(5 * time.Second))

	assert.Equal(t, 0.0, p50)
	assert.Equal(t, 0.0, p95)
}

func TestMonitor_IsStaleWithoutObservation(t *testing.T) {
	m := NewMonitor(2*time.Minute, time.Minute)

	assert.True(t, m.IsStale("client-1", time.Now()))
}

func TestMonitor_RecordDeliveryMarksFresh(t *testing.T) {
	m := NewMonitor(2*time.Minute, time.Minute)
	now := time.Now()

	m.RecordDelivery("client-1", now.Add(-10*time.Millisecond), now)

	assert.False(t, m.IsStale("client-1", now))
	assert.True(t, m.IsStale("client-1", now.Add(2*time.Minute)))
}

func TestMonitor_Snapshot(t *testing.T) {
	m := NewMonitor(2*time.Minute, time.Minute)
	now := time.Now()
	m.RecordDelivery("client-1", now.Add(-5*time.Millisecond), now)

	snap := m.Snapshot(now)

	require.Len(t, snap, 4)
	var sawTracked bool
	for _, s := range snap {
		if s.Series == "clients_tracked" {
			sawTracked = true
			assert.Equal(t, 1.0, s.Value)
		}
	}
	assert.True(t, sawTracked)
}

func TestFlusher_PersistsSnapshotRows(t *testing.T) {
	db, err := storage.OpenAuxiliary(filepath.Join(t.TempDir(), "web_metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))

	monitor := NewMonitor(2*time.Minute, time.Minute)
	now := time.Now()
	monitor.RecordDelivery("client-1", now.Add(-5*time.Millisecond), now)

	flusher := NewFlusher(monitor, db, time.Hour)
	require.NoError(t, flusher.flush(context.Background()))

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM web_metrics`).Scan(&count))
	assert.Equal(t, 4, count)
}
