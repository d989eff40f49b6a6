package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/videocatalog/videocatalog/internal/catalogerr"
	"github.com/videocatalog/videocatalog/internal/logging"
)

// errorBody is the {error, details?} envelope every non-2xx response uses.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// statusForKind maps a catalogerr.Kind to its HTTP status code per §7.
func statusForKind(kind catalogerr.Kind) int {
	switch kind {
	case catalogerr.KindValidation:
		return http.StatusBadRequest
	case catalogerr.KindUnauthorized:
		return http.StatusUnauthorized
	case catalogerr.KindForbidden:
		return http.StatusForbidden
	case catalogerr.KindNotFound:
		return http.StatusNotFound
	case catalogerr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates err into the JSON error envelope and matching
// status code. Errors that aren't a *catalogerr.Error are treated as
// internal and logged with their request context.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := catalogerr.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled request error")
	}

	body := errorBody{Error: err.Error()}
	var appErr *catalogerr.Error
	if e, ok := err.(*catalogerr.Error); ok {
		appErr = e
	}
	if appErr != nil && appErr.Details != nil {
		body.Details = appErr.Details
	}

	writeJSON(w, status, body)
}

// writeJSON marshals v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
