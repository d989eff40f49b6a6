// Package realtime tracks the connection and quality-of-service state of
// the HTTP server's live SSE/WS subscriber surface: connected-client
// counters, delivery-lag quantiles and per-client staleness, flushed to a
// dedicated SQLite file on an independent cadence from the broker's poll
// loop.
package realtime
