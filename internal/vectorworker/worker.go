package vectorworker

import (
	"context"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/logging"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/scheduler"
	"github.com/videocatalog/videocatalog/internal/storage"
)

const (
	refreshJobKind       = "vectors_refresh"
	defaultPollInterval  = 5 * time.Second
	defaultPerTableLimit = 500
)

type pendingRow struct {
	docID string
	kind  string
}

// schedulerFacade is the subset of *scheduler.Scheduler the worker needs,
// kept narrow so tests can substitute a stub without a real orchestrator
// database.
type schedulerFacade interface {
	HasActiveJobOfKind(ctx context.Context, kind string) (bool, error)
	Enqueue(ctx context.Context, kind string, payload map[string]any, priority int, resource models.ResourceClass, maxAttempts int) (int64, error)
}

// Worker drains vectors_pending and either hands refreshes off to the job
// orchestrator (when one is attached) or rebuilds the in-process fallback
// index directly.
type Worker struct {
	catalog      *storage.CatalogDB
	sched        schedulerFacade
	docs         DocumentSource
	embedder     EmbedderCapability
	index        *CosineIndex
	indexPath    string
	batchLimit   int
	perTableCap  int
	pollInterval time.Duration
}

// New builds a Worker. sched may be nil, meaning the orchestrator is
// disabled and every drain rebuilds the in-process index directly.
func New(catalogDB *storage.CatalogDB, sched *scheduler.Scheduler, docs DocumentSource, embedder EmbedderCapability, index *CosineIndex, indexPath string, batchLimit int) *Worker {
	if batchLimit < 1 {
		batchLimit = 100
	}
	w := &Worker{
		catalog:      catalogDB,
		docs:         docs,
		embedder:     embedder,
		index:        index,
		indexPath:    indexPath,
		batchLimit:   batchLimit,
		perTableCap:  defaultPerTableLimit,
		pollInterval: defaultPollInterval,
	}
	if sched != nil {
		w.sched = sched
	}
	return w
}

// Serve runs the drain loop until ctx is canceled, satisfying
// suture.Service. Idle periods wait on ctx so shutdown stays responsive.
func (w *Worker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.drainOnce(ctx); err != nil {
				logging.Err(err).Msg("vector drain failed")
			}
		}
	}
}

// drainOnce dequeues up to batchLimit pending rows (deleting them on
// fetch, per spec.md §4.8) and either enqueues a dedup'd orchestrator job
// or rebuilds the fallback index in-process. Returns the number of rows
// drained.
func (w *Worker) drainOnce(ctx context.Context) (int, error) {
	tx, err := w.catalog.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "begin vectors_pending drain", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT doc_id, kind FROM vectors_pending ORDER BY ts_utc LIMIT ?`, w.batchLimit)
	if err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "select vectors_pending", err)
	}
	var batch []pendingRow
	for rows.Next() {
		var p pendingRow
		if err := rows.Scan(&p.docID, &p.kind); err != nil {
			_ = rows.Close()
			return 0, catalogerr.Wrap(catalogerr.KindInternal, "scan vectors_pending row", err)
		}
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "iterate vectors_pending", err)
	}
	_ = rows.Close()

	if len(batch) == 0 {
		return 0, nil
	}

	for _, p := range batch {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors_pending WHERE doc_id = ?`, p.docID); err != nil {
			return 0, catalogerr.Wrap(catalogerr.KindInternal, "delete drained vectors_pending row", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, catalogerr.Wrap(catalogerr.KindInternal, "commit vectors_pending drain", err)
	}

	if w.sched != nil {
		if err := w.enqueueRefreshJob(ctx, batch); err != nil {
			return len(batch), err
		}
		return len(batch), nil
	}

	return len(batch), w.rebuildInProcess(ctx)
}

func (w *Worker) enqueueRefreshJob(ctx context.Context, batch []pendingRow) error {
	active, err := w.sched.HasActiveJobOfKind(ctx, refreshJobKind)
	if err != nil {
		return err
	}
	if active {
		return nil
	}

	docIDs := make([]string, len(batch))
	for i, p := range batch {
		docIDs[i] = p.docID
	}
	_, err = w.sched.Enqueue(ctx, refreshJobKind, map[string]any{"doc_ids": docIDs}, 0, models.ResourceLightCPU, 3)
	return err
}

func (w *Worker) rebuildInProcess(ctx context.Context) error {
	docs, err := w.docs.CollectDocuments(ctx, w.perTableCap)
	if err != nil {
		return err
	}
	if err := Rebuild(ctx, w.index, w.embedder, docs); err != nil {
		return err
	}
	if err := PersistShardVectors(ctx, w.catalog, w.index, docs); err != nil {
		logging.Err(err).Msg("persist shard feature vectors failed")
	}
	if w.indexPath == "" {
		return nil
	}
	return w.index.SaveToFile(w.indexPath)
}
