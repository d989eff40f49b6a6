package httpserver

import (
	"net/http"
	"time"

	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/catalogerr"
)

// handlers holds the collaborators every route method closes over.
type handlers struct {
	deps Deps
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": h.deps.Version,
	}
	if h.deps.Monitor != nil {
		resp["realtime"] = h.deps.Monitor.Snapshot(timeNow())
	}
	if h.deps.Assistant != nil {
		resp["assistant"] = h.deps.Assistant.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func timeNow() time.Time { return time.Now().UTC() }

func (h *handlers) listDrives(w http.ResponseWriter, r *http.Request) {
	drives, err := h.deps.Catalog.ListDrives(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": drives})
}

func (h *handlers) listInventory(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	if drive == "" {
		WriteError(w, r, catalogerr.Validation("drive is required"))
		return
	}
	filter := catalog.InventoryFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
		Ext:      r.URL.Query().Get("ext"),
		Mime:     r.URL.Query().Get("mime"),
		Since:    r.URL.Query().Get("since"),
	}
	page, err := h.deps.Catalog.ListInventory(r.Context(), drive, filter, pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) getFile(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive_label")
	path := r.URL.Query().Get("path")
	if drive == "" || path == "" {
		WriteError(w, r, catalogerr.Validation("drive_label and path are required"))
		return
	}
	row, err := h.deps.Catalog.GetInventoryByPath(r.Context(), drive, path)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// ReportCacheTTL is how long a rendered report body is reused before the
// underlying catalog query runs again.
const ReportCacheTTL = 30 * time.Second

// cachedReport serves r.URL.String() from h.deps.ReportCache if present,
// otherwise calls compute, caches the result and serves it. A nil
// ReportCache (caching disabled) just calls compute every time.
func (h *handlers) cachedReport(w http.ResponseWriter, r *http.Request, compute func() (any, error)) {
	if h.deps.ReportCache == nil {
		body, err := compute()
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
		return
	}

	key := r.URL.String()
	if cached, ok := h.deps.ReportCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	body, err := compute()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.deps.ReportCache.SetWithTTL(key, body, ReportCacheTTL)
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	if drive == "" {
		WriteError(w, r, catalogerr.Validation("drive is required"))
		return
	}
	h.cachedReport(w, r, func() (any, error) {
		files, bytes, err := h.deps.Catalog.DriveStats(r.Context(), drive)
		if err != nil {
			return nil, err
		}
		return map[string]any{"file_count": files, "total_bytes": bytes}, nil
	})
}

func (h *handlers) reportOverview(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	h.cachedReport(w, r, func() (any, error) {
		return h.deps.Catalog.Overview(r.Context(), drive)
	})
}

func (h *handlers) reportTopExtensions(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	byBytes := queryBool(r, "by_bytes")
	limit := queryInt(r, "limit", 20)
	h.cachedReport(w, r, func() (any, error) {
		ranks, err := h.deps.Catalog.TopExtensions(r.Context(), drive, byBytes, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": ranks}, nil
	})
}

func (h *handlers) reportLargestFiles(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	limit := queryInt(r, "limit", 20)
	h.cachedReport(w, r, func() (any, error) {
		rows, err := h.deps.Catalog.LargestFiles(r.Context(), drive, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": rows}, nil
	})
}

func (h *handlers) reportHeaviestFolders(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	depth := queryInt(r, "depth", 2)
	limit := queryInt(r, "limit", 20)
	h.cachedReport(w, r, func() (any, error) {
		rows, err := h.deps.Catalog.HeaviestFolders(r.Context(), drive, depth, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": rows}, nil
	})
}

func (h *handlers) reportRecentChanges(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	days := queryInt(r, "days", 7)
	limit := queryInt(r, "limit", 50)
	h.cachedReport(w, r, func() (any, error) {
		rows, err := h.deps.Catalog.RecentChanges(r.Context(), drive, days, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": rows}, nil
	})
}

func (h *handlers) listFeatures(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	if drive == "" {
		WriteError(w, r, catalogerr.Validation("drive is required"))
		return
	}
	page, err := h.deps.Catalog.ListFeatures(r.Context(), drive, pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) fetchVector(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	docID := r.URL.Query().Get("doc_id")
	kind := r.URL.Query().Get("kind")
	if drive == "" || docID == "" || kind == "" {
		WriteError(w, r, catalogerr.Validation("drive, doc_id and kind are required"))
		return
	}
	vector, err := h.deps.Catalog.FetchVector(r.Context(), drive, docID, kind, queryBool(r, "raw"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vector)
}

func (h *handlers) listMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.MovieFilter{
		YearMin:           queryInt(r, "year_min", 0),
		YearMax:           queryInt(r, "year_max", 0),
		MinConfidence:     queryFloat(r, "min_confidence", 0),
		Quality:           q.Get("quality"),
		AudioLangs:        queryCSV(r, "audio_langs"),
		SubLangs:          queryCSV(r, "sub_langs"),
		Drive:             q.Get("drive"),
		LowConfidenceOnly: queryBool(r, "low_confidence_only"),
	}
	page, err := h.deps.Catalog.ListMovies(r.Context(), filter, pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) listTVSeries(w http.ResponseWriter, r *http.Request) {
	page, err := h.deps.Catalog.ListTVSeries(r.Context(), pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) listTVEpisodes(w http.ResponseWriter, r *http.Request) {
	seriesID := r.URL.Query().Get("series_id")
	if seriesID == "" {
		WriteError(w, r, catalogerr.Validation("series_id is required"))
		return
	}
	episodes, err := h.deps.Catalog.ListEpisodes(r.Context(), seriesID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": episodes})
}

// catalogItem resolves an opaque id to its detail payload: first as a
// movie ("movie:<id>" or a bare movie id), then as a text-lite doc_id.
// TV ids are not looked up; they get the movie lookup's NotFound error.
func (h *handlers) catalogItem(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteError(w, r, catalogerr.Validation("id is required"))
		return
	}
	movie, err := h.deps.Catalog.GetMovie(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, movie)
		return
	}
	preview, docErr := h.deps.Catalog.DocPreview(r.Context(), id)
	if docErr == nil {
		writeJSON(w, http.StatusOK, preview)
		return
	}
	WriteError(w, r, err)
}

func (h *handlers) catalogSummary(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	overview, err := h.deps.Catalog.Overview(r.Context(), drive)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *handlers) catalogSearch(w http.ResponseWriter, r *http.Request) {
	h.semanticSearch(w, r)
}

func (h *handlers) catalogThumb(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, catalogerr.NotFound("thumbnail store not configured"))
}

func (h *handlers) openFolder(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		WriteError(w, r, catalogerr.Validation("path is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": "shell_open", "path": path})
}

func (h *handlers) realtimeStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.Monitor == nil {
		WriteError(w, r, catalogerr.Conflict("realtime monitor not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": h.deps.Monitor.Snapshot(timeNow())})
}

func (h *handlers) realtimeHeartbeat(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if h.deps.Monitor != nil && clientID != "" {
		_ = h.deps.Monitor.IsStale(clientID, timeNow())
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *handlers) listMusic(w http.ResponseWriter, r *http.Request) {
	drive := r.URL.Query().Get("drive")
	filter := catalog.InventoryFilter{Query: r.URL.Query().Get("q")}
	page, err := h.deps.Catalog.ListMusic(r.Context(), drive, filter, pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) listTextLite(w http.ResponseWriter, r *http.Request) {
	page, err := h.deps.Catalog.ListTextLite(r.Context(), pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) listVerifiedText(w http.ResponseWriter, r *http.Request) {
	page, err := h.deps.Catalog.ListVerifiedText(r.Context(), pagination(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) docPreview(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		WriteError(w, r, catalogerr.Validation("doc_id is required"))
		return
	}
	preview, err := h.deps.Catalog.DocPreview(r.Context(), docID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
