// Package metrics exposes Prometheus instrumentation for the catalog
// database, read API, event broker, scheduler, vector worker and
// assistant gateway. Metrics are served at /metrics via promhttp.
package metrics
