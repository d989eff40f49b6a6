package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/videocatalog/videocatalog/internal/logging"
	"github.com/videocatalog/videocatalog/internal/models"
)

// Handler runs one job's work. It should check ctx for cancellation at
// convenient checkpoints and call Scheduler.SaveCheckpoint as it makes
// resumable progress.
type Handler func(ctx context.Context, job *models.Job) error

// GPUGate runs the heavy_ai_gpu pool's pre-lease checks (policy, free VRAM
// probed fresh against the configured safety margin) and acquires the
// shared GPU resource lock. A non-nil error means the handler never runs:
// the pool requeues the job with backoff instead. On success, release must
// be called once the handler returns to free the lock for the next lease.
type GPUGate func(ctx context.Context, workerID string) (release func(), err error)

const defaultPollInterval = 2 * time.Second

// ExecutorPool leases and runs jobs of a single resource class, gating
// concurrency to the class's configured worker count. One pool exists per
// resource class (heavy_ai_gpu, light_cpu, io_light); the GPU pool's
// concurrency is normally 1 since the underlying hardware has no
// meaningful parallelism for transcode/embedding work.
type ExecutorPool struct {
	sched          *Scheduler
	resource       models.ResourceClass
	concurrency    int
	handlers       map[string]Handler
	heartbeatEvery time.Duration
	pollInterval   time.Duration
	name           string
	gpuGate        GPUGate
}

// SetGPUGate installs the heavy_ai_gpu pre-lease gate. Pools for other
// resource classes never call it.
func (p *ExecutorPool) SetGPUGate(gate GPUGate) {
	p.gpuGate = gate
}

// NewExecutorPool builds a pool for resource, dispatching leased jobs by
// kind to handlers. Jobs whose kind has no registered handler fail
// immediately with error_code "unknown_job_kind".
func NewExecutorPool(sched *Scheduler, resource models.ResourceClass, concurrency int, handlers map[string]Handler, heartbeatEvery time.Duration) *ExecutorPool {
	if concurrency < 1 {
		concurrency = 1
	}
	if heartbeatEvery <= 0 {
		heartbeatEvery = 5 * time.Second
	}
	return &ExecutorPool{
		sched:          sched,
		resource:       resource,
		concurrency:    concurrency,
		handlers:       handlers,
		heartbeatEvery: heartbeatEvery,
		pollInterval:   defaultPollInterval,
		name:           fmt.Sprintf("executor-%s-%s", resource, uuid.NewString()[:8]),
	}
}

// Serve runs concurrency worker goroutines until ctx is canceled,
// satisfying suture.Service.
func (p *ExecutorPool) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		workerID := fmt.Sprintf("%s-%d", p.name, i)
		go func() {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (p *ExecutorPool) runWorker(ctx context.Context, workerID string) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := p.sched.Lease(ctx, workerID, p.resource)
			if err != nil {
				logging.Err(err).Str("worker", workerID).Msg("job lease failed")
				continue
			}
			if job == nil {
				continue
			}
			p.run(ctx, workerID, job)
		}
	}
}

func (p *ExecutorPool) run(ctx context.Context, workerID string, job *models.Job) {
	if p.gpuGate != nil {
		release, err := p.gpuGate(ctx, workerID)
		if err != nil {
			p.requeueUnstarted(ctx, workerID, job, err)
			return
		}
		defer release()
	}

	if err := p.sched.Start(ctx, job.ID, workerID); err != nil {
		logging.Err(err).Int64("job_id", job.ID).Msg("job start failed")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go func() {
		defer hbWG.Done()
		p.heartbeatLoop(runCtx, job.ID, workerID)
		cancel()
	}()

	handler, ok := p.handlers[job.Kind]
	var runErr error
	errCode := ""
	if !ok {
		runErr = fmt.Errorf("no handler registered for job kind %q", job.Kind)
		errCode = "unknown_job_kind"
	} else {
		runErr = handler(runCtx, job)
		if runErr != nil {
			errCode = "handler_error"
		}
	}

	cancel()
	hbWG.Wait()

	if err := p.sched.Finish(ctx, job.ID, workerID, runErr, errCode); err != nil {
		logging.Err(err).Int64("job_id", job.ID).Msg("job finish failed")
	}
}

// requeueUnstarted puts a leased-but-gated job back to queued with backoff
// through the same Finish path a failed running job takes. Finish only
// accepts a running job, so the job is marked running first; its handler
// is never called.
func (p *ExecutorPool) requeueUnstarted(ctx context.Context, workerID string, job *models.Job, gateErr error) {
	if err := p.sched.Start(ctx, job.ID, workerID); err != nil {
		logging.Err(err).Int64("job_id", job.ID).Msg("job start failed before gpu gate requeue")
		return
	}
	if err := p.sched.Finish(ctx, job.ID, workerID, gateErr, "gpu_unavailable"); err != nil {
		logging.Err(err).Int64("job_id", job.ID).Msg("job finish failed after gpu gate rejection")
	}
}

// heartbeatLoop refreshes the job's heartbeat until ctx ends. It returns
// early once a heartbeat finds the job cancelled; run then cancels the
// handler's context.
func (p *ExecutorPool) heartbeatLoop(ctx context.Context, jobID int64, workerID string) {
	ticker := time.NewTicker(p.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.sched.Heartbeat(context.Background(), jobID, workerID); err != nil {
				if cancelled, _ := p.sched.IsCancelled(context.Background(), jobID); cancelled {
					return
				}
				logging.Err(err).Int64("job_id", jobID).Msg("job heartbeat failed")
			}
		}
	}
}
