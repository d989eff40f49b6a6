package httpserver

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/validation"
)

func (h *handlers) playlistSuggest(w http.ResponseWriter, r *http.Request) {
	filter := catalog.PlaylistCandidateFilter{
		MinDurationSeconds: queryInt(r, "min_duration_seconds", 0),
		MaxDurationSeconds: queryInt(r, "max_duration_seconds", 0),
		MinConfidence:      queryFloat(r, "min_confidence", 0),
		AudioLangs:         queryCSV(r, "audio_langs"),
	}
	page, err := h.deps.Catalog.PlaylistCandidates(r.Context(), filter, pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type playlistBuildRequest struct {
	Filter   catalog.PlaylistCandidateFilter `json:"filter"`
	Strategy catalog.BuildStrategy           `json:"strategy" validate:"required,oneof=weighted_random quality confidence"`
}

func (h *handlers) playlistBuild(w http.ResponseWriter, r *http.Request) {
	var req playlistBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, catalogerr.Validation("invalid request body"))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		WriteError(w, r, catalogerr.Validation(verr.Error()))
		return
	}
	page, err := h.deps.Catalog.PlaylistCandidates(r.Context(), req.Filter, catalog.Pagination{Limit: 500})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	playlist, err := catalog.BuildPlaylist(page.Results, req.Strategy, time.Now().UnixNano())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": playlist})
}

type playlistExportRequest struct {
	Movies []models.Movie `json:"movies" validate:"required,min=1"`
	Format string         `json:"format" validate:"required,oneof=m3u"`
}

func (h *handlers) playlistExport(w http.ResponseWriter, r *http.Request) {
	var req playlistExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, catalogerr.Validation("invalid request body"))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		WriteError(w, r, catalogerr.Validation(verr.Error()))
		return
	}
	body, err := catalog.ExportPlaylist(req.Movies, req.Format)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write([]byte(body))
}
