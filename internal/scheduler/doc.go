// Package scheduler implements the persistent single-node job orchestrator:
// a state-machine job queue (queued/leased/running/done/failed/cancelled)
// backed by data/orchestrator.db, compare-and-set leasing, heartbeats, a
// reaper that reclaims expired leases, and per-resource-class executor
// pools that gate concurrency and GPU access.
package scheduler
