package httpserver

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

func (h *handlers) diagnosticsPreflight(w http.ResponseWriter, r *http.Request) {
	if h.deps.Preflight == nil {
		WriteError(w, r, catalogerr.Conflict("preflight not configured"))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Preflight.Run(r.Context()))
}

func (h *handlers) diagnosticsSmoke(w http.ResponseWriter, r *http.Request) {
	if h.deps.Smoke == nil {
		WriteError(w, r, catalogerr.Conflict("smoke suite not configured"))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Smoke.Run(r.Context()))
}

// diagnosticsReports lists prior smoke test run directories under
// exports/testruns, newest first.
func (h *handlers) diagnosticsReports(w http.ResponseWriter, r *http.Request) {
	dir := filepath.Join(h.deps.ExportsDir, "testruns")
	entries, err := os.ReadDir(dir)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"results": []string{}})
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	writeJSON(w, http.StatusOK, map[string]any{"results": names})
}

func (h *handlers) diagnosticsReport(w http.ResponseWriter, r *http.Request) {
	ts := r.URL.Query().Get("ts")
	if ts == "" {
		WriteError(w, r, catalogerr.Validation("ts is required"))
		return
	}
	path := filepath.Join(h.deps.ExportsDir, "testruns", filepath.Base(ts), "summary.md")
	body, err := os.ReadFile(path)
	if err != nil {
		WriteError(w, r, catalogerr.NotFound("report not found"))
		return
	}
	w.Header().Set("Content-Type", "text/markdown")
	_, _ = w.Write(body)
}

func (h *handlers) diagnosticsDownload(w http.ResponseWriter, r *http.Request) {
	ts := r.URL.Query().Get("ts")
	file := r.URL.Query().Get("file")
	if ts == "" || file == "" {
		WriteError(w, r, catalogerr.Validation("ts and file are required"))
		return
	}
	path := filepath.Join(h.deps.ExportsDir, "testruns", filepath.Base(ts), filepath.Base(file))
	if _, err := os.Stat(path); err != nil {
		WriteError(w, r, catalogerr.NotFound("file not found"))
		return
	}
	http.ServeFile(w, r, path)
}

// diagnosticsPerformance reports per-endpoint latency percentiles collected
// by the Performance middleware across every served request.
func (h *handlers) diagnosticsPerformance(w http.ResponseWriter, r *http.Request) {
	if h.deps.Performance == nil {
		WriteError(w, r, catalogerr.Conflict("performance monitor not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": h.deps.Performance.GetStats()})
}
