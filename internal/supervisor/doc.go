/*
Package supervisor provides process supervision for videocatalogd using
suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of every long-running background service the daemon runs. It
provides Erlang/OTP-style supervision with automatic restart, failure
isolation, and graceful shutdown.

# Overview

The supervisor tree organizes services into four layers for failure
isolation:

	RootSupervisor ("videocatalogd")
	├── StorageSupervisor ("storage-layer")
	│   └── (reserved: SQLite access is per-call, not a long-running
	│         service; nothing currently needs supervision here)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── broker.Poller       (drains the catalog event queue)
	│   ├── broker.Registry     (fans events out to subscribers)
	│   ├── realtime.Flusher    (periodic lag-snapshot persistence)
	│   └── vectorworker.Worker (semantic index drain loop)
	├── JobsSupervisor ("jobs-layer")
	│   ├── scheduler.ExecutorPool (one per resource class: heavy_ai_gpu,
	│   │                           light_cpu, io_light)
	│   └── scheduler.Reaper       (reclaims expired job leases)
	└── APISupervisor ("api-layer")
	    └── httpserver.Server

This hierarchy ensures that:
  - A crash in the vector worker doesn't affect the HTTP API
  - A stuck job executor doesn't take down event delivery
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via the sutureslog adapter

# Usage Example

Basic setup in cmd/videocatalogd/main.go:

	import (
	    "log/slog"
	    "github.com/videocatalog/videocatalog/internal/supervisor"
	)

	func main() {
	    logger := logging.NewSlogLogger()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    tree.AddMessagingService(poller)
	    tree.AddJobService(executorPool)
	    tree.AddAPIService(server)

	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("Supervisor stopped: %v", err)
	    }
	}

Background operation:

	// Start in background
	errChan := tree.ServeBackground(ctx)

	// Do other setup...

	// Wait for shutdown
	if err := <-errChan; err != nil {
	    log.Printf("Supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,          // Failures before backoff
	    FailureDecay:     30.0,         // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's production-ready defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Failure Handling

The supervisor uses a failure counter with exponential decay:

1. Each service failure increments the counter
2. Counter decays exponentially over time (FailureDecay seconds)
3. When counter exceeds FailureThreshold, supervisor enters backoff
4. During backoff, restarts are delayed by FailureBackoff duration
5. If failures continue, the child supervisor may be restarted by parent

Example failure scenarios:

	# Single crash - immediate restart
	Service crashes -> Counter: 1 -> Restart immediately

	# Rapid crashes - backoff triggered
	Service crashes 5x in 10s -> Counter: 5+ -> Wait 15s before restart

	# Isolated failures - counter decays
	Service crashes once, stable for 60s -> Counter: ~0.13 -> Normal restart

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# What Is NOT Supervised

The catalog, orchestrator and metrics SQLite databases are not
supervised:
  - They're embedded, in-process connections, not long-running services
  - Each is a single *sql.DB handle opened at start-up; only shard
    databases go through the shard pool
  - A crash in the driver would require a process restart anyway

# Debugging Shutdown Issues

If services don't stop within the timeout:

	// Get report of unstopped services
	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc.Name)
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines
  - Mutex deadlocks during shutdown

# Performance Characteristics

The supervisor tree has minimal overhead:
  - Service check: <1us per iteration
  - Restart: ~1ms (goroutine spawn)
  - Memory: ~1KB per supervised service
  - No polling (event-driven via channels)

# Thread Safety

The SupervisorTree is safe for concurrent use:
  - Services can be added from any goroutine
  - Remove operations are synchronized
  - Multiple services can crash simultaneously

# See Also

  - github.com/thejerf/suture/v4: underlying library
*/
package supervisor
