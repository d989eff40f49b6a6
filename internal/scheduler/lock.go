package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// GPULock is the single named resource_locks row arbitrating exclusive GPU
// access across job kinds that cannot share it (transcode, embedding,
// the assistant's local inference session).
const GPULock = "gpu"

// AcquireLock attempts to take the named lock for holder, failing with a
// Conflict error if another holder already has it. Locks are not leased —
// the holder is responsible for calling ReleaseLock.
func (s *Scheduler) AcquireLock(ctx context.Context, name, holder string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "begin lock transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingHolder sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT held_by FROM resource_locks WHERE name = ?`, name).Scan(&existingHolder)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resource_locks (name, held_by, acquired_utc) VALUES (?, ?, ?)`,
			name, holder, time.Now().UTC().Format(timeLayout)); err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "insert resource lock", err)
		}
	case err != nil:
		return catalogerr.Wrap(catalogerr.KindInternal, "read resource lock", err)
	case existingHolder.Valid && existingHolder.String != "" && existingHolder.String != holder:
		return catalogerr.Conflict("resource " + name + " is held by " + existingHolder.String)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE resource_locks SET held_by = ?, acquired_utc = ? WHERE name = ?`,
			holder, time.Now().UTC().Format(timeLayout), name); err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "update resource lock", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "commit lock transaction", err)
	}
	return nil
}

// ReleaseLock frees name if still held by holder. Releasing a lock held by
// someone else, or a lock that is already free, is a no-op.
func (s *Scheduler) ReleaseLock(ctx context.Context, name, holder string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE resource_locks SET held_by = NULL, acquired_utc = NULL WHERE name = ? AND held_by = ?`,
		name, holder)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "release resource lock", err)
	}
	return nil
}

// LockHolder returns the current holder of name, or "" if free.
func (s *Scheduler) LockHolder(ctx context.Context, name string) (string, error) {
	var holder sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT held_by FROM resource_locks WHERE name = ?`, name).Scan(&holder)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", catalogerr.Wrap(catalogerr.KindInternal, "read resource lock holder", err)
	}
	return holder.String, nil
}
