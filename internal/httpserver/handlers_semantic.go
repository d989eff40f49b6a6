package httpserver

import (
	"net/http"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

func (h *handlers) semanticSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		WriteError(w, r, catalogerr.Validation("q is required"))
		return
	}
	if h.deps.VectorIndex == nil || h.deps.Embedder == nil {
		WriteError(w, r, catalogerr.Conflict("semantic index not ready"))
		return
	}
	k := queryInt(r, "k", 20)

	vectors, err := h.deps.Embedder.Embed(r.Context(), []string{query})
	if err != nil {
		WriteError(w, r, catalogerr.Wrap(catalogerr.KindInternal, "embed query", err))
		return
	}
	if len(vectors) == 0 {
		WriteError(w, r, catalogerr.Internal(nil))
		return
	}

	matches := h.deps.VectorIndex.Search(vectors[0], k)
	writeJSON(w, http.StatusOK, map[string]any{"results": matches})
}

func (h *handlers) semanticIndexStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"ready": h.deps.VectorIndex != nil}
	if h.deps.VectorIndex != nil {
		status["entries"] = h.deps.VectorIndex.Len()
	}
	writeJSON(w, http.StatusOK, status)
}

// semanticIndexRebuild triggers an out-of-band refresh by enqueueing a
// light_cpu vectors_refresh job and returning its id; the job's handler
// rebuilds the index later rather than synchronously on the request
// goroutine.
func (h *handlers) semanticIndexRebuild(w http.ResponseWriter, r *http.Request) {
	if h.deps.Scheduler == nil {
		WriteError(w, r, catalogerr.Conflict("orchestrator not configured"))
		return
	}
	id, err := h.deps.Scheduler.Enqueue(r.Context(), "vectors_refresh", nil, 0, "light_cpu", 3)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
}

func (h *handlers) semanticTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.deps.Scheduler == nil {
		WriteError(w, r, catalogerr.Conflict("orchestrator not configured"))
		return
	}
	id, err := h.deps.Scheduler.Enqueue(r.Context(), "transcribe_batch", nil, 0, "heavy_ai_gpu", 3)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
}
