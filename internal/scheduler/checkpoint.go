package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/models"
)

// SaveCheckpoint upserts the resumable progress blob for a job, letting a
// worker resume a long transcode or scan near where it left off after a
// crash or a reclaimed lease.
func (s *Scheduler) SaveCheckpoint(ctx context.Context, jobID int64, ckpt map[string]any) error {
	raw, err := json.Marshal(ckpt)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "marshal checkpoint", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_checkpoints (job_id, ckpt_json, updated_utc) VALUES (?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET ckpt_json = excluded.ckpt_json, updated_utc = excluded.updated_utc`,
		jobID, string(raw), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "save checkpoint", err)
	}
	return nil
}

// LoadCheckpoint returns the last saved checkpoint for jobID, or nil if
// none has been recorded yet.
func (s *Scheduler) LoadCheckpoint(ctx context.Context, jobID int64) (*models.JobCheckpoint, error) {
	var raw, updatedUTC string
	err := s.db.QueryRowContext(ctx,
		`SELECT ckpt_json, updated_utc FROM job_checkpoints WHERE job_id = ?`, jobID).
		Scan(&raw, &updatedUTC)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "load checkpoint", err)
	}

	ckpt := &models.JobCheckpoint{JobID: jobID}
	if err := json.Unmarshal([]byte(raw), &ckpt.Checkpoint); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "decode checkpoint", err)
	}
	if t := parseTimePtr(&updatedUTC); t != nil {
		ckpt.UpdatedUTC = *t
	}
	return ckpt, nil
}
