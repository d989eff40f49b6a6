package storage

import (
	"container/list"
	"context"
	"sync"

	"github.com/videocatalog/videocatalog/internal/metrics"
)

// ShardPool is a small LRU-bounded map from drive label to an open
// *ShardDB, closing the least-recently-used shard once the pool exceeds
// its capacity. A user's library can span more drives than it is
// comfortable to keep open simultaneously.
type ShardPool struct {
	mu       sync.Mutex
	catalog  *CatalogDB
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type poolEntry struct {
	label string
	shard *ShardDB
}

// NewShardPool creates a pool bounded to capacity open shards. A
// non-positive capacity defaults to 8.
func NewShardPool(catalog *CatalogDB, capacity int) *ShardPool {
	if capacity <= 0 {
		capacity = 8
	}
	return &ShardPool{
		catalog:  catalog,
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the shard for label, opening and caching it on first use and
// promoting it to most-recently-used.
func (p *ShardPool) Get(ctx context.Context, label string) (*ShardDB, error) {
	p.mu.Lock()
	if el, ok := p.entries[label]; ok {
		p.order.MoveToFront(el)
		shard := el.Value.(*poolEntry).shard
		p.mu.Unlock()
		return shard, nil
	}
	p.mu.Unlock()

	shard, err := p.catalog.OpenShardReadOnly(ctx, label)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.entries[label]; ok {
		p.order.MoveToFront(el)
		existing := el.Value.(*poolEntry).shard
		_ = shard.Close()
		return existing, nil
	}

	el := p.order.PushFront(&poolEntry{label: label, shard: shard})
	p.entries[label] = el
	metrics.DBOpenShards.Inc()

	for p.order.Len() > p.capacity {
		p.evictOldestLocked()
	}
	return shard, nil
}

// evictOldestLocked closes and removes the least-recently-used shard. The
// caller must hold p.mu.
func (p *ShardPool) evictOldestLocked() {
	oldest := p.order.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*poolEntry)
	p.order.Remove(oldest)
	delete(p.entries, entry.label)
	_ = entry.shard.Close()
	metrics.DBOpenShards.Dec()
}

// CloseAll closes every open shard and empties the pool.
func (p *ShardPool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for el := p.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*poolEntry)
		if err := entry.shard.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		metrics.DBOpenShards.Dec()
	}
	p.order.Init()
	p.entries = make(map[string]*list.Element)
	return firstErr
}

// Len returns the number of currently open shards.
func (p *ShardPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}
