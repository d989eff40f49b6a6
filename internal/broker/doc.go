// Package broker delivers events_queue rows to live HTTP subscribers in
// near real-time without blocking catalog writers: a Poller tails the
// queue and publishes batches onto an in-process watermill topic, and a
// Registry fans those batches out to bounded per-subscriber queues,
// replaying missed events on (re)connect and coalescing large catch-up
// batches.
package broker
