package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/validation"
)

type jobEnqueueRequest struct {
	Kind        string               `json:"kind" validate:"required"`
	Payload     map[string]any       `json:"payload"`
	Priority    int                  `json:"priority"`
	Resource    models.ResourceClass `json:"resource" validate:"required,oneof=heavy_ai_gpu light_cpu io_light"`
	MaxAttempts int                  `json:"max_attempts"`
}

func (h *handlers) jobEnqueue(w http.ResponseWriter, r *http.Request) {
	if h.deps.Scheduler == nil {
		WriteError(w, r, catalogerr.Conflict("orchestrator not configured"))
		return
	}
	var req jobEnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, catalogerr.Validation("invalid request body"))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		WriteError(w, r, catalogerr.Validation(verr.Error()))
		return
	}
	if req.MaxAttempts <= 0 {
		req.MaxAttempts = 3
	}
	id, err := h.deps.Scheduler.Enqueue(r.Context(), req.Kind, req.Payload, req.Priority, req.Resource, req.MaxAttempts)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
}

func (h *handlers) jobGet(w http.ResponseWriter, r *http.Request) {
	if h.deps.Scheduler == nil {
		WriteError(w, r, catalogerr.Conflict("orchestrator not configured"))
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, r, catalogerr.Validation("invalid job id"))
		return
	}
	job, err := h.deps.Scheduler.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handlers) jobCancel(w http.ResponseWriter, r *http.Request) {
	if h.deps.Scheduler == nil {
		WriteError(w, r, catalogerr.Conflict("orchestrator not configured"))
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, r, catalogerr.Validation("invalid job id"))
		return
	}
	if err := h.deps.Scheduler.Cancel(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
