package broker

import (
	"context"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/logging"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/storage"
)

const minPollInterval = 200 * time.Millisecond

// Poller tails events_queue and republishes new rows to a Registry. It is
// the only writer of lastSeq, so no locking is needed around it.
type Poller struct {
	catalog    *storage.CatalogDB
	registry   *Registry
	batchLimit int
	interval   time.Duration
	lastSeq    int64
}

// NewPoller builds a Poller starting from lastSeq (0 to read from the
// beginning of events_queue).
func NewPoller(catalog *storage.CatalogDB, registry *Registry, batchLimit int, interval time.Duration, lastSeq int64) *Poller {
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return &Poller{
		catalog:    catalog,
		registry:   registry,
		batchLimit: batchLimit,
		interval:   interval,
		lastSeq:    lastSeq,
	}
}

// Serve runs the poll loop until ctx is canceled, satisfying
// suture.Service.
func (p *Poller) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.tick(ctx); err != nil {
				logging.Err(err).Msg("broker poller tick failed")
			}
		}
	}
}

func (p *Poller) tick(ctx context.Context) error {
	rows, err := p.catalog.Conn().QueryContext(ctx,
		`SELECT seq, ts_utc, kind, payload_json FROM events_queue WHERE seq > ? ORDER BY seq LIMIT ?`,
		p.lastSeq, p.batchLimit)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "poll events_queue", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "iterate polled events", err)
	}
	if len(events) == 0 {
		return nil
	}

	p.lastSeq = events[len(events)-1].Seq
	return p.registry.Publish(events)
}
