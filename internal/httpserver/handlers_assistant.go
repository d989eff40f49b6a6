package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/validation"
)

func (h *handlers) assistantStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.Assistant == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "message": "assistant not configured"})
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Assistant.Status())
}

type assistantAskRequest struct {
	SessionID   string `json:"session_id"`
	ItemID      string `json:"item_id"`
	ItemPayload string `json:"item_payload"`
	Question    string `json:"question" validate:"required,max=4000"`
	ToolBudget  *int   `json:"tool_budget" validate:"omitempty,min=1,max=50"`
	UseRAG      *bool  `json:"use_rag"`
}

func (h *handlers) assistantAsk(w http.ResponseWriter, r *http.Request) {
	if h.deps.Assistant == nil {
		WriteError(w, r, catalogerr.Conflict("AI disabled (assistant not configured)"))
		return
	}
	var req assistantAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, catalogerr.Validation("invalid request body"))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		WriteError(w, r, catalogerr.Validation(verr.Error()))
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.RemoteAddr
	}
	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	result, err := h.deps.Assistant.AskContext(r.Context(), req.SessionID, req.ItemID, req.ItemPayload, req.Question, req.ToolBudget, useRAG)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
