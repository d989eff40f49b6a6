package httpserver

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/videocatalog/videocatalog/internal/assistant"
	"github.com/videocatalog/videocatalog/internal/broker"
	"github.com/videocatalog/videocatalog/internal/cache"
	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/config"
	"github.com/videocatalog/videocatalog/internal/diagnostics"
	appmiddleware "github.com/videocatalog/videocatalog/internal/middleware"
	"github.com/videocatalog/videocatalog/internal/realtime"
	"github.com/videocatalog/videocatalog/internal/scheduler"
	"github.com/videocatalog/videocatalog/internal/vectorworker"
)

// Deps bundles every collaborator a route handler might need. Fields may be
// nil for collaborators a given deployment doesn't wire up (e.g. the
// assistant gateway when assistant.enable is false); handlers degrade to a
// Conflict/NotFound response rather than panicking.
type Deps struct {
	Settings    config.ServerSettings
	Catalog     *catalog.Service
	Broker      *broker.Registry
	Monitor     *realtime.Monitor
	Scheduler   *scheduler.Scheduler
	Assistant   *assistant.Gateway
	VectorIndex *vectorworker.CosineIndex
	Embedder    vectorworker.EmbedderCapability
	Preflight   *diagnostics.Preflight
	Smoke       *diagnostics.Smoke
	StaticDir   string
	ExportsDir  string
	Version     string

	// ReportCache holds the rendered bodies of the /v1/reports endpoints and
	// /v1/stats for a short TTL. Those queries scan the whole catalog and
	// drives don't churn fast enough to justify recomputing them on every
	// poll from the UI. Nil disables caching (handlers fall back to
	// computing every call).
	ReportCache cache.Cacher

	// Performance tracks per-endpoint latency percentiles across every
	// request. Nil disables the /v1/diagnostics/performance endpoint.
	Performance *appmiddleware.PerformanceMonitor
}

// NewRouter assembles the chi.Mux and its full /v1 route table.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(appmiddleware.RequestID))
	r.Use(chiMiddleware(LANGate(deps.Settings.LANOnly)))
	r.Use(chiMiddleware(APIKeyAuth(deps.Settings.APIKey)))
	r.Use(chiMiddleware(RequestLogging))
	if deps.Performance != nil {
		r.Use(deps.Performance.Middleware)
	}
	r.Use(chiMiddleware(appmiddleware.Compression))
	r.Use(corsMiddleware(deps.Settings.CORSOrigins))

	h := &handlers{deps: deps}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Get("/drives", h.listDrives)
		r.Get("/inventory", h.listInventory)
		r.Get("/file", h.getFile)
		r.Get("/stats", h.stats)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/overview", h.reportOverview)
			r.Get("/top-extensions", h.reportTopExtensions)
			r.Get("/largest-files", h.reportLargestFiles)
			r.Get("/heaviest-folders", h.reportHeaviestFolders)
			r.Get("/recent", h.reportRecentChanges)
		})

		r.Get("/features", h.listFeatures)
		r.Get("/features/vector", h.fetchVector)

		r.Get("/semantic/search", h.semanticSearch)
		r.Get("/semantic/index", h.semanticIndexStatus)
		r.Post("/semantic/index", h.semanticIndexRebuild)
		r.Post("/semantic/transcribe", h.semanticTranscribe)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/movies", h.listMovies)
			r.Get("/tv/series", h.listTVSeries)
			r.Get("/tv/episodes", h.listTVEpisodes)
			r.Get("/item", h.catalogItem)
			r.Get("/summary", h.catalogSummary)
			r.Get("/search", h.catalogSearch)
			r.Get("/thumb", h.catalogThumb)
			r.Post("/open-folder", h.openFolder)
			r.Get("/subscribe", h.subscribe)
			r.Get("/realtime/status", h.realtimeStatus)
			r.Post("/realtime/heartbeat", h.realtimeHeartbeat)
		})

		r.Get("/music", h.listMusic)
		r.Get("/textlite/preview", h.listTextLite)
		r.Get("/textverify/preview", h.listVerifiedText)
		r.Get("/docs/preview", h.docPreview)

		r.Route("/playlist", func(r chi.Router) {
			r.Get("/suggest", h.playlistSuggest)
			r.Post("/build", h.playlistBuild)
			r.Post("/export", h.playlistExport)
			r.Post("/open-folder", h.openFolder)
		})

		r.Get("/assistant/status", h.assistantStatus)
		r.Post("/assistant/ask", h.assistantAsk)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", h.jobEnqueue)
			r.Get("/{id}", h.jobGet)
			r.Post("/{id}/cancel", h.jobCancel)
		})

		r.Post("/diagnostics/preflight", h.diagnosticsPreflight)
		r.Post("/diagnostics/smoke", h.diagnosticsSmoke)
		r.Get("/diagnostics/reports", h.diagnosticsReports)
		r.Get("/diagnostics/report", h.diagnosticsReport)
		r.Get("/diagnostics/download", h.diagnosticsDownload)
		r.Get("/diagnostics/performance", h.diagnosticsPerformance)
	})

	mountStaticUI(r, deps.StaticDir)

	return r
}

// mountStaticUI serves the built catalog UI from dist at "/" when it
// exists, per spec.md's "mount it at /" rule.
func mountStaticUI(r chi.Router, dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	fileServer := http.FileServer(http.Dir(dir))
	r.Group(func(r chi.Router) {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(dir, filepath.Clean(r.URL.Path))
			if info, err := os.Stat(path); err != nil || info.IsDir() {
				http.ServeFile(w, r, filepath.Join(dir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	})
}
