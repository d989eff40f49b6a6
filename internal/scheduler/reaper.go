package scheduler

import (
	"context"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/logging"
)

const defaultReapInterval = 5 * time.Second

// Reaper reclaims jobs whose lease has gone stale — the worker holding
// them stopped heartbeating, most likely because it crashed or its
// process was killed mid-run. A reclaimed job goes back to queued and
// consumes one attempt, same as an explicit failure, so it still respects
// max_attempts and backoff.
type Reaper struct {
	sched    *Scheduler
	leaseTTL time.Duration
	interval time.Duration
}

// NewReaper builds a Reaper. interval should typically match the
// scheduler's heartbeat_interval setting.
func NewReaper(sched *Scheduler, leaseTTL, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = defaultReapInterval
	}
	return &Reaper{sched: sched, leaseTTL: leaseTTL, interval: interval}
}

// Serve runs the reap loop until ctx is canceled, satisfying
// suture.Service.
func (r *Reaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := r.reapOnce(ctx); err != nil {
				logging.Err(err).Msg("lease reap failed")
			} else if n > 0 {
				logging.Info().Int("count", n).Msg("reclaimed expired job leases")
			}
		}
	}
}

func (r *Reaper) reapOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.leaseTTL).Format(timeLayout)

	rows, err := r.sched.db.QueryContext(ctx,
		`SELECT id FROM jobs WHERE status IN ('leased', 'running') AND heartbeat_utc < ?`, cutoff)
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "select stale leases", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, catalogerr.Wrap(catalogerr.KindInternal, "scan stale lease id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "iterate stale leases", err)
	}
	_ = rows.Close()

	reclaimed := 0
	for _, id := range ids {
		if err := r.reclaim(ctx, id); err != nil {
			return reclaimed, err
		}
		reclaimed++
	}
	return reclaimed, nil
}

func (r *Reaper) reclaim(ctx context.Context, jobID int64) error {
	var attempts, maxAttempts int
	if err := r.sched.db.QueryRowContext(ctx,
		`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, jobID).Scan(&attempts, &maxAttempts); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "read reclaim job attempts", err)
	}
	attempts++
	now := time.Now().UTC()

	if attempts < maxAttempts {
		notBefore := now.Add(r.sched.backoff(attempts)).Format(timeLayout)
		_, err := r.sched.db.ExecContext(ctx,
			`UPDATE jobs SET status = 'queued', attempts = ?, lease_owner = NULL, not_before_utc = ?,
			 error_code = 'lease_expired', error_msg = 'worker stopped heartbeating'
			 WHERE id = ?`, attempts, notBefore, jobID)
		if err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "requeue reclaimed job", err)
		}
		return nil
	}

	_, err := r.sched.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'failed', attempts = ?, ended_utc = ?,
		 error_code = 'lease_expired', error_msg = 'worker stopped heartbeating'
		 WHERE id = ?`, attempts, now.Format(timeLayout), jobID)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "fail reclaimed job", err)
	}
	return nil
}
