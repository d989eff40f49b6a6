package broker

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/metrics"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/storage"
)

// Topic is the single watermill topic every published event is sent on.
const Topic = "catalog.events"

// Subscription is one live subscriber's bounded view of the event stream.
type Subscription struct {
	id         string
	events     chan models.Event
	drops      atomic.Uint64
	removed    chan struct{}
	removeOnce sync.Once
}

// ID returns the subscription's opaque identifier.
func (s *Subscription) ID() string { return s.id }

// Events returns the channel new events are delivered on. It is closed when
// the subscription is removed from its Registry.
func (s *Subscription) Events() <-chan models.Event { return s.events }

// Drops returns the number of events dropped because this subscriber's
// queue was full.
func (s *Subscription) Drops() uint64 { return s.drops.Load() }

// Removed returns a channel that's closed once the subscriber has been
// marked for removal by the registry's fan-out loop (its queue overflowed).
// The transport handler (SSE/WS loop) selects on this alongside Events()
// and closes the connection when it fires.
func (s *Subscription) Removed() <-chan struct{} { return s.removed }

func (s *Subscription) markForRemoval() {
	s.removeOnce.Do(func() { close(s.removed) })
}

// Registry holds every live Subscription and fans published events out to
// them. Subscribe and the internal fan-out loop share a mutex so a new
// subscriber's replay-then-live-attach is atomic with respect to the
// Poller's publish cycle: no event can be published between the replay
// query and the live attach, which would otherwise either duplicate or
// skip an event for that subscriber.
type Registry struct {
	mu                sync.Mutex
	catalog           *storage.CatalogDB
	pubsub            *gochannel.GoChannel
	subs              map[string]*Subscription
	batchLimit        int
	coalesceThreshold int
	onDrop            func(subscriberID string)
}

// NewRegistry builds a Registry backed by an in-process watermill pub/sub.
func NewRegistry(catalog *storage.CatalogDB, batchLimit, coalesceThreshold int) *Registry {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(batchLimit),
	}, watermill.NopLogger{})

	return &Registry{
		catalog:           catalog,
		pubsub:            pubsub,
		subs:              make(map[string]*Subscription),
		batchLimit:        batchLimit,
		coalesceThreshold: coalesceThreshold,
	}
}

// SetOnDrop installs a callback invoked whenever an event is dropped for a
// subscriber's full queue, instead of giving Registry a back-reference to
// the realtime monitor.
func (r *Registry) SetOnDrop(fn func(subscriberID string)) {
	r.mu.Lock()
	r.onDrop = fn
	r.mu.Unlock()
}

// Serve runs the fan-out loop until ctx is canceled, satisfying
// suture.Service.
func (r *Registry) Serve(ctx context.Context) error {
	msgs, err := r.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "subscribe broker topic", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev models.Event
			if err := json.Unmarshal(msg.Payload, &ev); err == nil {
				r.fanOut(ev)
			}
			msg.Ack()
		}
	}
}

func (r *Registry) fanOut(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		select {
		case sub.events <- ev:
		default:
			sub.drops.Add(1)
			metrics.BrokerEventsDropped.WithLabelValues("subscriber_queue_full").Inc()
			sub.markForRemoval()
			if r.onDrop != nil {
				r.onDrop(sub.id)
			}
		}
	}
}

// Publish marshals and publishes a batch of events onto the broker topic.
// Called by the Poller once per tick with the rows it read since its last
// known seq.
func (r *Registry) Publish(events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]*message.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return catalogerr.Wrap(catalogerr.KindInternal, "marshal event for publish", err)
		}
		msgs = append(msgs, message.NewMessage(uuid.NewString(), payload))
	}

	if err := r.pubsub.Publish(Topic, msgs...); err != nil {
		return catalogerr.Wrap(catalogerr.KindInternal, "publish event batch", err)
	}
	metrics.BrokerEventsPublished.Add(float64(len(events)))
	return nil
}

// Subscribe registers a new subscriber. It first synchronously replays
// every event with seq > lastSeq, so lastSeq 0 replays from the start of
// the queue (bounded by the
// registry's batch limit, coalesced if the replay batch is large) before
// the subscription starts receiving live events, bridging a reconnecting
// client's gap without missing anything in between.
func (r *Registry) Subscribe(ctx context.Context, lastSeq int64, capacity int) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	replay, err := r.replay(ctx, lastSeq)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{id: uuid.NewString(), events: make(chan models.Event, capacity), removed: make(chan struct{})}
	for _, ev := range coalesce(replay, r.coalesceThreshold) {
		select {
		case sub.events <- ev:
		default:
			sub.drops.Add(1)
			metrics.BrokerEventsDropped.WithLabelValues("replay_overflow").Inc()
		}
	}

	r.subs[sub.id] = sub
	metrics.BrokerSubscribers.Inc()
	return sub, nil
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// concurrently with fan-out; callers must stop reading from Events()
// afterward.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return
	}
	delete(r.subs, id)
	close(sub.events)
	metrics.BrokerSubscribers.Dec()
}

func (r *Registry) replay(ctx context.Context, lastSeq int64) ([]models.Event, error) {
	rows, err := r.catalog.Conn().QueryContext(ctx,
		`SELECT seq, ts_utc, kind, payload_json FROM events_queue WHERE seq > ? ORDER BY seq LIMIT ?`,
		lastSeq, r.batchLimit)
	if err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "replay events_queue", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, catalogerr.Wrap(catalogerr.KindInternal, "iterate replayed events", err)
	}
	return events, nil
}

func scanEvent(r *sql.Rows) (models.Event, error) {
	var ev models.Event
	var tsRaw, payloadRaw string
	if err := r.Scan(&ev.Seq, &tsRaw, &ev.Kind, &payloadRaw); err != nil {
		return models.Event{}, catalogerr.Wrap(catalogerr.KindInternal, "scan event row", err)
	}
	if ts, err := time.Parse("2006-01-02T15:04:05.999999999Z", tsRaw); err == nil {
		ev.TimestampUTC = ts
	} else if ts, err := time.Parse(time.RFC3339, tsRaw); err == nil {
		ev.TimestampUTC = ts
	}
	if payloadRaw != "" {
		_ = json.Unmarshal([]byte(payloadRaw), &ev.Payload)
	}
	return ev, nil
}
