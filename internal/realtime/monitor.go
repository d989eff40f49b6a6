package realtime

import (
	"sync"
	"time"

	"github.com/videocatalog/videocatalog/internal/metrics"
)

const defaultStaleAfter = 60 * time.Second

// Monitor tracks realtime connection counts, delivery lag and per-client
// staleness for the SSE/WS subscriber surface.
type Monitor struct {
	mu         sync.Mutex
	lastSeen   map[string]time.Time
	staleAfter time.Duration
	lag        *LagWindow
}

// NewMonitor builds a Monitor. A zero staleAfter falls back to 60s.
func NewMonitor(lagWindow, staleAfter time.Duration) *Monitor {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Monitor{
		lastSeen:   make(map[string]time.Time),
		staleAfter: staleAfter,
		lag:        NewLagWindow(lagWindow),
	}
}

func (m *Monitor) ClientConnectedWS()    { metrics.RealtimeWSConnected.Inc() }
func (m *Monitor) ClientDisconnectedWS() { metrics.RealtimeWSConnected.Dec() }
func (m *Monitor) ClientConnectedSSE()   { metrics.RealtimeSSEConnected.Inc() }
func (m *Monitor) ClientDisconnectedSSE() { metrics.RealtimeSSEConnected.Dec() }

// RecordDelivery records a successful push to clientID and its lag.
func (m *Monitor) RecordDelivery(clientID string, eventTS, now time.Time) {
	metrics.RealtimeEventsPushed.Inc()
	m.lag.Observe(eventTS, now)
	m.touch(clientID, now)
}

// RecordDrop records an event dropped for subscriberID's full queue. It is
// wired as the broker registry's OnDrop callback rather than giving the
// broker a back-reference to the monitor.
func (m *Monitor) RecordDrop(subscriberID string) {
	metrics.RealtimeEventsDropped.Inc()
}

// RecordAIRequest records one assistant request and whether it errored.
func (m *Monitor) RecordAIRequest(err error) {
	metrics.RealtimeAIRequests.Inc()
	if err != nil {
		metrics.RealtimeAIErrors.Inc()
	}
}

func (m *Monitor) touch(clientID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen[clientID] = now
}

// Forget removes a disconnected client's last-seen entry.
func (m *Monitor) Forget(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastSeen, clientID)
}

// IsStale reports whether clientID hasn't been seen within staleAfter, or
// has never been seen at all.
func (m *Monitor) IsStale(clientID string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen, ok := m.lastSeen[clientID]
	if !ok {
		return true
	}
	return now.Sub(seen) > m.staleAfter
}

// LagQuantiles returns the current p50/p95 delivery lag in milliseconds.
func (m *Monitor) LagQuantiles(now time.Time) (p50, p95 float64) {
	return m.lag.Quantiles(now)
}

// Snapshot is one observable series value captured for persistence.
type Snapshot struct {
	Series string
	Labels map[string]string
	Value  float64
}

// Snapshot captures the monitor's current gauges for a Flusher to persist.
func (m *Monitor) Snapshot(now time.Time) []Snapshot {
	p50, p95 := m.LagQuantiles(now)

	m.mu.Lock()
	tracked := len(m.lastSeen)
	stale := 0
	for _, seen := range m.lastSeen {
		if now.Sub(seen) > m.staleAfter {
			stale++
		}
	}
	m.mu.Unlock()

	return []Snapshot{
		{Series: "lag_p50_ms", Value: p50},
		{Series: "lag_p95_ms", Value: p95},
		{Series: "clients_tracked", Value: float64(tracked)},
		{Series: "clients_stale", Value: float64(stale)},
	}
}
