// Command videocatalogd runs the video catalog service: it resolves a
// working directory, opens the catalog and auxiliary databases, wires the
// event broker, realtime monitor, job scheduler, vector worker and
// assistant gateway, then serves the HTTP API until asked to stop.
//
// The supervisor tree organizes background services into four layers:
// storage (reserved), messaging (broker poller/fan-out, realtime flush,
// vector worker drain loop), jobs (per-resource-class executor pools and
// the lease reaper), and api (the HTTP server). A crash in one layer does
// not take down the others.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/videocatalog/videocatalog/internal/assistant"
	"github.com/videocatalog/videocatalog/internal/broker"
	"github.com/videocatalog/videocatalog/internal/cache"
	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/config"
	"github.com/videocatalog/videocatalog/internal/diagnostics"
	"github.com/videocatalog/videocatalog/internal/external"
	"github.com/videocatalog/videocatalog/internal/httpserver"
	"github.com/videocatalog/videocatalog/internal/logging"
	appmiddleware "github.com/videocatalog/videocatalog/internal/middleware"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/pathresolver"
	"github.com/videocatalog/videocatalog/internal/realtime"
	"github.com/videocatalog/videocatalog/internal/scheduler"
	"github.com/videocatalog/videocatalog/internal/storage"
	"github.com/videocatalog/videocatalog/internal/supervisor"
	"github.com/videocatalog/videocatalog/internal/vectorworker"
)

func main() {
	root, err := pathresolver.Resolve(pathresolver.OSEnv{})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to resolve a writable working directory")
	}
	wd, err := pathresolver.Layout(root)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to lay out working directory")
	}

	cfg, unknownKeys, err := config.Load(wd.SettingsPath())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load settings")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	logging.Info().Str("workdir", wd.Root).Msg("starting videocatalogd")

	if len(unknownKeys) > 0 {
		persistUnknownKeys(wd, unknownKeys)
	}

	catalogDB, err := storage.OpenCatalog(filepath.Join(wd.Root, cfg.Database.CatalogPath))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open catalog database")
	}
	defer func() {
		if err := catalogDB.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing catalog database")
		}
	}()

	shardPool := storage.NewShardPool(catalogDB, cfg.Database.ShardPoolSize)
	defer func() {
		if err := shardPool.CloseAll(); err != nil {
			logging.Error().Err(err).Msg("error closing shard pool")
		}
	}()

	catalogSvc := catalog.New(catalogDB, shardPool, cfg.Server.DefaultPageSize, cfg.Server.MaxPageSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestratorDB, err := storage.OpenAuxiliary(filepath.Join(wd.Root, cfg.Scheduler.OrchestratorPath))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open orchestrator database")
	}
	defer func() { _ = orchestratorDB.Close() }()
	if err := scheduler.EnsureSchema(ctx, orchestratorDB); err != nil {
		logging.Fatal().Err(err).Msg("failed to apply orchestrator schema")
	}
	sched := scheduler.New(orchestratorDB, cfg.Scheduler.BackoffBase, cfg.Scheduler.BackoffMax)

	metricsDB, err := storage.OpenAuxiliary(filepath.Join(wd.Root, cfg.Realtime.MetricsDBPath))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open realtime metrics database")
	}
	defer func() { _ = metricsDB.Close() }()
	if err := realtime.EnsureSchema(ctx, metricsDB); err != nil {
		logging.Fatal().Err(err).Msg("failed to apply realtime metrics schema")
	}
	monitor := realtime.NewMonitor(time.Duration(cfg.Realtime.LagWindowSeconds)*time.Second, cfg.Realtime.StaleAfter)
	flusher := realtime.NewFlusher(monitor, metricsDB, cfg.Realtime.FlushInterval)

	registry := broker.NewRegistry(catalogDB, cfg.Broker.BatchLimit, cfg.Broker.CoalesceThreshold)
	registry.SetOnDrop(monitor.RecordDrop)
	poller := broker.NewPoller(catalogDB, registry, cfg.Broker.BatchLimit, cfg.Broker.PollInterval, 0)

	indexPath := filepath.Join(wd.Data, "vector_index.json")
	vecIndex := vectorworker.NewCosineIndex()
	if err := vecIndex.LoadFromFile(indexPath); err != nil {
		logging.Warn().Err(err).Msg("failed to load persisted vector index, starting empty")
	}
	embedder := vectorworker.NewHashEmbedder(64)
	docSource := vectorworker.NewCatalogDocumentSource(catalogSvc)
	vecWorker := vectorworker.New(catalogDB, sched, docSource, embedder, vecIndex, indexPath, cfg.Broker.BatchLimit)

	tmdbClient := external.NewEnrichClient(external.ProviderTMDB, external.Config{
		BaseURL: "https://api.themoviedb.org/3",
		APIKey:  cfg.Assistant.TMDBAPIKey,
	})
	openSubsClient := external.NewEnrichClient(external.ProviderOpenSubtitles, external.Config{
		BaseURL: "https://api.opensubtitles.com/api/v1",
		APIKey:  cfg.Assistant.OpenSubtitlesKey,
	})
	dispatcher := &assistant.Dispatcher{
		Catalog:       catalogSvc,
		Index:         vecIndex,
		Embedder:      embedder,
		TMDB:          tmdbClient,
		OpenSubtitles: openSubsClient,
		ExportsDir:    wd.Exports,
	}
	gpuProbe := assistant.NewGPUProbe(10 * time.Second)
	gateway := assistant.NewGateway(ctx, cfg.Assistant, gpuProbe, sched, dispatcher, func() assistant.ModelRunner {
		return assistant.NewOllamaRunner(cfg.Assistant.OllamaHost, cfg.Assistant.Model, 60*time.Second)
	})

	preflight := diagnostics.NewPreflight(cfg.Diagnostics, cfg.Assistant, wd, catalogDB.Conn())
	smoke := diagnostics.NewSmoke(wd, root)
	smoke.SubTests = buildSmokeSubTests(catalogSvc, vecIndex, embedder, docSource, dispatcher)

	lightCPUHandlers := map[string]scheduler.Handler{
		"vectors_refresh": vectorRefreshHandler(docSource, embedder, vecIndex, indexPath),
	}
	gpuHandlers := map[string]scheduler.Handler{
		"transcribe_batch": transcribeBatchHandler(gpuProbe),
	}

	lightPool := scheduler.NewExecutorPool(sched, models.ResourceLightCPU, concurrencyFor(cfg.Scheduler, models.ResourceLightCPU), lightCPUHandlers, cfg.Scheduler.HeartbeatEvery)
	gpuPool := scheduler.NewExecutorPool(sched, models.ResourceGPU, concurrencyFor(cfg.Scheduler, models.ResourceGPU), gpuHandlers, cfg.Scheduler.HeartbeatEvery)
	gpuPool.SetGPUGate(gpuLeaseGate(sched, gpuProbe, cfg.Scheduler.GPUSafetyMarginMB))
	ioPool := scheduler.NewExecutorPool(sched, models.ResourceIOLight, concurrencyFor(cfg.Scheduler, models.ResourceIOLight), map[string]scheduler.Handler{}, cfg.Scheduler.HeartbeatEvery)
	reaper := scheduler.NewReaper(sched, cfg.Scheduler.LeaseTTL, cfg.Scheduler.HeartbeatEvery)

	var assistantGateway *assistant.Gateway
	if cfg.Assistant.Enabled {
		assistantGateway = gateway
	}

	router := httpserver.NewRouter(httpserver.Deps{
		Settings:    cfg.Server,
		Catalog:     catalogSvc,
		Broker:      registry,
		Monitor:     monitor,
		Scheduler:   sched,
		Assistant:   assistantGateway,
		VectorIndex: vecIndex,
		Embedder:    embedder,
		Preflight:   preflight,
		Smoke:       smoke,
		StaticDir:   filepath.Join(root, "web", "catalog-ui", "dist"),
		ExportsDir:  wd.Exports,
		Version:     "dev",
		ReportCache: cache.NewLFU(512, httpserver.ReportCacheTTL),
		Performance: appmiddleware.NewPerformanceMonitor(2048),
	})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := httpserver.NewServer(addr, router)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddMessagingService(poller)
	tree.AddMessagingService(registry)
	tree.AddMessagingService(flusher)
	tree.AddMessagingService(vecWorker)

	tree.AddJobService(lightPool)
	tree.AddJobService(gpuPool)
	tree.AddJobService(ioPool)
	tree.AddJobService(reaper)

	tree.AddAPIService(server)
	logging.Info().Str("addr", addr).Msg("http server added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("videocatalogd stopped")
}

func concurrencyFor(s config.SchedulerSettings, resource models.ResourceClass) int {
	if n, ok := s.Concurrency[string(resource)]; ok && n > 0 {
		return n
	}
	return 1
}

// gpuLeaseGate builds the heavy_ai_gpu pool's pre-lease gate: probe free
// VRAM fresh against safetyMarginMB, then acquire the shared GPU resource
// lock that assistant.Gateway also contends for, so an ask_context call and
// a leased GPU job never run concurrently against the same device.
func gpuLeaseGate(sched *scheduler.Scheduler, probe *assistant.GPUProbe, safetyMarginMB int) scheduler.GPUGate {
	return func(ctx context.Context, workerID string) (func(), error) {
		freeMB, err := probe.FreeVRAMMB(ctx)
		if err != nil {
			return nil, fmt.Errorf("gpu lease gate: probe free vram: %w", err)
		}
		if freeMB < int64(safetyMarginMB) {
			return nil, fmt.Errorf("gpu lease gate: free vram %dMB below safety margin %dMB", freeMB, safetyMarginMB)
		}

		holder := "scheduler:" + workerID
		if err := sched.AcquireLock(ctx, scheduler.GPULock, holder); err != nil {
			return nil, fmt.Errorf("gpu lease gate: acquire gpu lock: %w", err)
		}
		return func() { _ = sched.ReleaseLock(context.Background(), scheduler.GPULock, holder) }, nil
	}
}

func persistUnknownKeys(wd pathresolver.WorkingDir, keys []string) {
	logging.Warn().Strs("keys", keys).Msg("settings.json contains unrecognized top-level keys")
	path := filepath.Join(wd.Logs, "settings_unknown.json")
	body := "[\""
	for i, k := range keys {
		if i > 0 {
			body += "\",\""
		}
		body += k
	}
	body += "\"]"
	if err := os.WriteFile(path, []byte(body), 0o640); err != nil {
		logging.Warn().Err(err).Msg("failed to persist unknown settings keys report")
	}
}

// vectorRefreshHandler rebuilds the in-process index in place of the
// dedicated vector worker drain loop, for a vectors_refresh job the
// orchestrator leased directly (e.g. via POST /v1/semantic/index).
func vectorRefreshHandler(docs vectorworker.DocumentSource, embedder vectorworker.EmbedderCapability, idx *vectorworker.CosineIndex, indexPath string) scheduler.Handler {
	return func(ctx context.Context, job *models.Job) error {
		collected, err := docs.CollectDocuments(ctx, 500)
		if err != nil {
			return err
		}
		if err := vectorworker.Rebuild(ctx, idx, embedder, collected); err != nil {
			return err
		}
		return idx.SaveToFile(indexPath)
	}
}

// transcribeBatchHandler runs the GPU readiness probe before accepting a
// transcription batch job; the transcoding/transcription pipeline itself
// lives outside this package's scope (ffprobe/ffmpeg invocation, caption
// extraction), so the handler here only gates and acknowledges the job.
func transcribeBatchHandler(probe *assistant.GPUProbe) scheduler.Handler {
	return func(ctx context.Context, job *models.Job) error {
		readiness := probe.Probe(ctx)
		if !readiness.Ready {
			return fmt.Errorf("transcribe_batch: gpu not ready: %s", readiness.Reason)
		}
		return nil
	}
}
