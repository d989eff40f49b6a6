package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/models"
)

const timeLayout = time.RFC3339Nano

// Scheduler owns the orchestrator database and implements the job
// lifecycle state machine described in spec.md §4.7: queued -> leased ->
// running -> done|failed, with cancellation honored on the next heartbeat.
type Scheduler struct {
	db          *sql.DB
	backoffBase time.Duration
	backoffMax  time.Duration
}

// New wraps an orchestrator database already migrated with EnsureSchema.
func New(db *sql.DB, backoffBase, backoffMax time.Duration) *Scheduler {
	return &Scheduler{db: db, backoffBase: backoffBase, backoffMax: backoffMax}
}

// Enqueue inserts a new queued job and returns its id.
func (s *Scheduler) Enqueue(ctx context.Context, kind string, payload map[string]any, priority int, resource models.ResourceClass, maxAttempts int) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "marshal job payload", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (kind, payload_json, priority, resource, status, max_attempts, created_utc)
		 VALUES (?, ?, ?, ?, 'queued', ?, ?)`,
		kind, string(raw), priority, string(resource), maxAttempts, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "enqueue job", err)
	}
	return result.LastInsertId()
}

// Lease performs the compare-and-set lease: inside one BEGIN IMMEDIATE
// transaction (the orchestrator database connects with _txlock=immediate,
// so every BeginTx opens as IMMEDIATE) it selects the highest-priority
// queued job for resource whose backoff window has elapsed, flips it to
// leased, and returns it. Returns (nil, nil) when no job is currently
// eligible — this is the normal "queue empty" outcome, not an error.
func (s *Scheduler) Lease(ctx context.Context, worker string, resource models.ResourceClass) (*models.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "begin lease transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM jobs
		 WHERE status = 'queued' AND resource = ?
		   AND (not_before_utc IS NULL OR not_before_utc <= ?)
		 ORDER BY priority DESC, id ASC LIMIT 1`,
		string(resource), now.Format(timeLayout)).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "select leasable job", err)
	}

	nowStr := now.Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = 'leased', lease_owner = ?, lease_utc = ?, heartbeat_utc = ?
		 WHERE id = ? AND status = 'queued'`,
		worker, nowStr, nowStr, id); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "lease job", err)
	}

	job, err := scanJobByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "commit lease transaction", err)
	}
	return job, nil
}

// Start transitions a leased job to running and records started_utc.
func (s *Scheduler) Start(ctx context.Context, jobID int64, worker string) error {
	now := time.Now().UTC().Format(timeLayout)
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'running', started_utc = ?, heartbeat_utc = ?
		 WHERE id = ? AND lease_owner = ? AND status = 'leased'`,
		now, now, jobID, worker)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "start job", err)
	}
	return requireRowsAffected(result, fmt.Sprintf("job %d not leased by %s", jobID, worker))
}

// Heartbeat refreshes heartbeat_utc for a worker's leased/running job.
func (s *Scheduler) Heartbeat(ctx context.Context, jobID int64, worker string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET heartbeat_utc = ?
		 WHERE id = ? AND lease_owner = ? AND status IN ('leased', 'running')`,
		time.Now().UTC().Format(timeLayout), jobID, worker)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "heartbeat job", err)
	}
	return requireRowsAffected(result, fmt.Sprintf("job %d no longer held by %s", jobID, worker))
}

// Finish completes a running job, succeeding (status=done) or failing. A
// failure reschedules with exponential backoff (base * 2^(attempts-1),
// capped at backoffMax) until max_attempts is exhausted, at which point the
// job is marked failed with errCode/errMsg.
func (s *Scheduler) Finish(ctx context.Context, jobID int64, worker string, runErr error, errCode string) error {
	now := time.Now().UTC()
	if runErr == nil {
		result, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = 'done', ended_utc = ?
			 WHERE id = ? AND lease_owner = ? AND status = 'running'`,
			now.Format(timeLayout), jobID, worker)
		if err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "finish job", err)
		}
		return requireRowsAffected(result, fmt.Sprintf("job %d not running under %s", jobID, worker))
	}

	var attempts, maxAttempts int
	if err := s.db.QueryRowContext(ctx,
		`SELECT attempts, max_attempts FROM jobs WHERE id = ? AND lease_owner = ?`, jobID, worker).
		Scan(&attempts, &maxAttempts); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "read job attempts", err)
	}
	attempts++

	if attempts < maxAttempts {
		notBefore := now.Add(s.backoff(attempts)).Format(timeLayout)
		result, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = 'queued', attempts = ?, lease_owner = NULL, not_before_utc = ?,
			 error_code = ?, error_msg = ?
			 WHERE id = ? AND lease_owner = ? AND status = 'running'`,
			attempts, notBefore, errCode, runErr.Error(), jobID, worker)
		if err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "requeue failed job", err)
		}
		return requireRowsAffected(result, fmt.Sprintf("job %d not running under %s", jobID, worker))
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'failed', attempts = ?, ended_utc = ?, error_code = ?, error_msg = ?
		 WHERE id = ? AND lease_owner = ? AND status = 'running'`,
		attempts, now.Format(timeLayout), errCode, runErr.Error(), jobID, worker)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "fail job", err)
	}
	return requireRowsAffected(result, fmt.Sprintf("job %d not running under %s", jobID, worker))
}

func (s *Scheduler) backoff(attempts int) time.Duration {
	d := time.Duration(float64(s.backoffBase) * math.Pow(2, float64(attempts-1)))
	if s.backoffMax > 0 && d > s.backoffMax {
		return s.backoffMax
	}
	return d
}

// Cancel marks a job cancelled. Per spec.md §4.7, cancellation is honored
// by the running worker on its next heartbeat rather than forcing an
// immediate stop.
func (s *Scheduler) Cancel(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'cancelled', ended_utc = ?
		 WHERE id = ? AND status IN ('queued', 'leased', 'running')`,
		time.Now().UTC().Format(timeLayout), jobID)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "cancel job", err)
	}
	return nil
}

// IsCancelled reports whether jobID has since been marked cancelled,
// letting a running worker check between checkpointed chunks.
func (s *Scheduler) IsCancelled(ctx context.Context, jobID int64) (bool, error) {
	var status string
	if err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, jobID).Scan(&status); err != nil {
		return false, catalogerr.Wrap(catalogerr.KindInternal, "check job status", err)
	}
	return status == string(models.JobCancelled), nil
}

// Get fetches a job by id.
func (s *Scheduler) Get(ctx context.Context, jobID int64) (*models.Job, error) {
	return scanJobByID(ctx, s.db, jobID)
}

// HasActiveJobOfKind reports whether any job of kind is currently queued,
// leased, or running, for callers (the vector worker) that want to
// deduplicate enqueues rather than pile up redundant work.
func (s *Scheduler) HasActiveJobOfKind(ctx context.Context, kind string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM jobs WHERE kind = ? AND status IN ('queued', 'leased', 'running') LIMIT 1`,
		kind).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, catalogerr.Wrap(catalogerr.KindInternal, "check active job of kind", err)
	}
	return true, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanJobByID(ctx context.Context, q queryRower, jobID int64) (*models.Job, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, kind, payload_json, priority, resource, status, attempts, max_attempts,
		        lease_owner, lease_utc, heartbeat_utc, created_utc, started_utc, ended_utc,
		        error_code, error_msg
		 FROM jobs WHERE id = ?`, jobID)

	var job models.Job
	var payloadRaw, createdUTC string
	var resource, leaseOwner, leaseUTC, heartbeatUTC, startedUTC, endedUTC, errCode, errMsg *string
	if err := row.Scan(&job.ID, &job.Kind, &payloadRaw, &job.Priority, &resource, &job.Status, &job.Attempts,
		&job.MaxAttempts, &leaseOwner, &leaseUTC, &heartbeatUTC, &createdUTC, &startedUTC, &endedUTC,
		&errCode, &errMsg); err != nil {
		if err == sql.ErrNoRows {
			return nil, catalogerr.NotFound("job not found")
		}
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "scan job row", err)
	}

	if resource != nil {
		job.Resource = models.ResourceClass(*resource)
	}
	if payloadRaw != "" {
		_ = json.Unmarshal([]byte(payloadRaw), &job.Payload)
	}
	if leaseOwner != nil {
		job.LeaseOwner = *leaseOwner
	}
	if t := parseTimePtr(&createdUTC); t != nil {
		job.CreatedUTC = *t
	}
	job.LeaseUTC = parseTimePtr(leaseUTC)
	job.HeartbeatUTC = parseTimePtr(heartbeatUTC)
	job.StartedUTC = parseTimePtr(startedUTC)
	job.EndedUTC = parseTimePtr(endedUTC)
	if errCode != nil {
		job.ErrorCode = *errCode
	}
	if errMsg != nil {
		job.ErrorMsg = *errMsg
	}
	return &job, nil
}

func parseTimePtr(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	if t, err := time.Parse(timeLayout, *raw); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, *raw); err == nil {
		return &t
	}
	return nil
}

func requireRowsAffected(result sql.Result, message string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "read rows affected", err)
	}
	if n == 0 {
		return catalogerr.Conflict(message)
	}
	return nil
}
