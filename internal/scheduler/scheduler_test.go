package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/storage"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	db, err := storage.OpenAuxiliary(filepath.Join(t.TempDir(), "orchestrator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return New(db, time.Millisecond, time.Second)
}

func TestLease_ReturnsHighestPriorityQueuedJob(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, "scan", nil, 1, models.ResourceIOLight, 3)
	require.NoError(t, err)
	wantID, err := s.Enqueue(ctx, "scan", nil, 9, models.ResourceIOLight, 3)
	require.NoError(t, err)

	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, wantID, job.ID)
	assert.Equal(t, models.JobLeased, job.Status)
	assert.Equal(t, "worker-1", job.LeaseOwner)
}

func TestLease_DoesNotDoubleLeaseAcrossWorkers(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceLightCPU, 3)
	require.NoError(t, err)

	first, err := s.Lease(ctx, "worker-1", models.ResourceLightCPU)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.Lease(ctx, "worker-2", models.ResourceLightCPU)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestLease_IgnoresOtherResourceClasses(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, "embed", nil, 0, models.ResourceGPU, 3)
	require.NoError(t, err)

	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestLease_HonorsNotBeforeWindow(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 3)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE jobs SET not_before_utc = ? WHERE id = ?`,
		time.Now().UTC().Add(time.Hour).Format(timeLayout), id)
	require.NoError(t, err)

	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestStartAndHeartbeat_RequireMatchingOwner(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 3)
	require.NoError(t, err)
	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)

	assert.Error(t, s.Start(ctx, job.ID, "worker-2"))
	require.NoError(t, s.Start(ctx, job.ID, "worker-1"))
	require.NoError(t, s.Heartbeat(ctx, job.ID, "worker-1"))
	assert.Error(t, s.Heartbeat(ctx, job.ID, "worker-2"))
}

func TestFinish_SuccessMarksDone(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 3)
	require.NoError(t, err)
	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, job.ID, "worker-1"))

	require.NoError(t, s.Finish(ctx, job.ID, "worker-1", nil, ""))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, got.Status)
	assert.NotNil(t, got.EndedUTC)
}

func TestFinish_FailureRequeuesWithBackoffUntilExhausted(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 2)
	require.NoError(t, err)

	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, job.ID, "worker-1"))
	require.NoError(t, s.Finish(ctx, job.ID, "worker-1", errors.New("boom"), "transient"))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)

	// Force the backoff window open and lease again for the final attempt.
	_, err = s.db.ExecContext(ctx, `UPDATE jobs SET not_before_utc = NULL WHERE id = ?`, id)
	require.NoError(t, err)

	job2, err := s.Lease(ctx, "worker-2", models.ResourceIOLight)
	require.NoError(t, err)
	require.NotNil(t, job2)
	require.NoError(t, s.Start(ctx, job2.ID, "worker-2"))
	require.NoError(t, s.Finish(ctx, job2.ID, "worker-2", errors.New("boom again"), "transient"))

	final, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, final.Status)
	assert.Equal(t, 2, final.Attempts)
	assert.Equal(t, "transient", final.ErrorCode)
}

func TestCancel_StopsFurtherLeasing(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 3)
	require.NoError(t, err)
	require.NoError(t, s.Cancel(ctx, id))

	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	assert.Nil(t, job)

	cancelled, err := s.IsCancelled(ctx, id)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestCheckpoint_SaveAndLoadRoundTrips(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 3)
	require.NoError(t, err)

	none, err := s.LoadCheckpoint(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.SaveCheckpoint(ctx, id, map[string]any{"offset": float64(42)}))
	require.NoError(t, s.SaveCheckpoint(ctx, id, map[string]any{"offset": float64(99)}))

	ckpt, err := s.LoadCheckpoint(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, ckpt)
	assert.Equal(t, float64(99), ckpt.Checkpoint["offset"])
}

func TestLock_AcquireIsExclusiveUntilReleased(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	require.NoError(t, s.AcquireLock(ctx, GPULock, "worker-1"))
	assert.Error(t, s.AcquireLock(ctx, GPULock, "worker-2"))

	require.NoError(t, s.ReleaseLock(ctx, GPULock, "worker-1"))
	require.NoError(t, s.AcquireLock(ctx, GPULock, "worker-2"))

	holder, err := s.LockHolder(ctx, GPULock)
	require.NoError(t, err)
	assert.Equal(t, "worker-2", holder)
}

func TestReaper_ReclaimsExpiredLeaseAndRequeues(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 3)
	require.NoError(t, err)
	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, job.ID, "worker-1"))

	stale := time.Now().UTC().Add(-time.Hour).Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `UPDATE jobs SET heartbeat_utc = ? WHERE id = ?`, stale, id)
	require.NoError(t, err)

	reaper := NewReaper(s, time.Second, time.Hour)
	n, err := reaper.reapOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "lease_expired", got.ErrorCode)
}

func TestReaper_ReclaimExhaustsIntoFailed(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "scan", nil, 0, models.ResourceIOLight, 1)
	require.NoError(t, err)
	job, err := s.Lease(ctx, "worker-1", models.ResourceIOLight)
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, job.ID, "worker-1"))

	stale := time.Now().UTC().Add(-time.Hour).Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `UPDATE jobs SET heartbeat_utc = ? WHERE id = ?`, stale, id)
	require.NoError(t, err)

	reaper := NewReaper(s, time.Second, time.Hour)
	n, err := reaper.reapOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)
}

func TestExecutorPool_RunsRegisteredHandlerToCompletion(t *testing.T) {
	s := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Enqueue(ctx, "scan", map[string]any{"path": "/x"}, 0, models.ResourceIOLight, 3)
	require.NoError(t, err)

	done := make(chan struct{})
	pool := NewExecutorPool(s, models.ResourceIOLight, 1, map[string]Handler{
		"scan": func(ctx context.Context, job *models.Job) error {
			close(done)
			return nil
		},
	}, time.Hour)
	pool.pollInterval = 5 * time.Millisecond

	go func() { _ = pool.Serve(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
	cancel()
}

func TestExecutorPool_UnknownKindFailsJob(t *testing.T) {
	s := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := s.Enqueue(ctx, "mystery", nil, 0, models.ResourceIOLight, 1)
	require.NoError(t, err)

	pool := NewExecutorPool(s, models.ResourceIOLight, 1, map[string]Handler{}, time.Hour)
	pool.pollInterval = 5 * time.Millisecond
	go func() { _ = pool.Serve(ctx) }()

	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, id)
		return err == nil && got.Status == models.JobFailed
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
}
