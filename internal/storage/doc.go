// Package storage opens and maintains the catalog database (drives registry,
// event queue, catalog content tables), the per-drive shard databases
// (inventory, features, per-drive profiles) and auxiliary databases such as
// the scheduler's orchestrator.db, all backed by SQLite through
// mattn/go-sqlite3. See OpenCatalog, OpenShardReadOnly, ShardPool and
// OpenAuxiliary.
package storage
