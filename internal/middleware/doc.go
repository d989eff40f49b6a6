/*
Package middleware provides HTTP middleware components for videocatalogd's
API server.

This package implements infrastructure middleware for compression,
performance monitoring, and request ID tracking. internal/httpserver chains
RequestID ahead of its LAN gate and API key checks, and Performance and
Compression after those checks and request logging, to build the full
middleware stack for request processing.

Key Components:

  - Compression: Gzip compression for any response whose client accepts gzip
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing

Middleware Stack:

internal/httpserver.NewRouter chains these in order:

	r.Use(RequestID)
	r.Use(LANGate)
	r.Use(APIKeyAuth)
	r.Use(RequestLogging)
	r.Use(Performance.Middleware)
	r.Use(Compression)
	r.Use(CORS)

Usage Example - Compression:

	import "github.com/videocatalog/videocatalog/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Every response is compressed, whatever its size,
	// when the request's Accept-Encoding includes gzip

Usage Example - Performance Monitoring:

	// Create performance monitor
	perfMon := middleware.NewPerformanceMonitor(2048)

	// Wrap handler
	http.Handle("/api/v1/stats",
	    perfMon.Middleware(handler),
	)

	// Get performance statistics
	stats := perfMon.GetStats()

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: bounded ring buffer of latency samples

Compression Details:

The compression middleware:
  - Only compresses responses the client accepts gzip for
  - Skips WebSocket upgrade requests
  - Automatically sets Content-Encoding header
  - Pools gzip.Writer values to reduce allocations

Performance Monitor:

The performance monitor tracks, per "METHOD path" key:
  - Request count
  - Latency percentiles (p50, p95, p99)
  - Rolling window of maxMetrics most recent requests
  - Thread-safe concurrent access with RWMutex

Served at GET /v1/diagnostics/performance.

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers from a sync.Pool
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)

See Also:

  - internal/httpserver: chains these ahead of the route table
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
