// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/grimpeur/internal/domain/query"
)

// QueryHandler handles POST /rides/{id}/query requests.
type QueryHandler struct {
	deps RideReadDependencies
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(deps RideReadDependencies) *QueryHandler {
	return &QueryHandler{deps: deps}
}

// HandlePostQuery evaluates a structured query against a completed analysis.
// Invalid requests and empty selections map to distinct client errors so
// callers can tell a malformed question from an unanswerable one.
func (h *QueryHandler) HandlePostQuery(w http.ResponseWriter, r *http.Request, rideID string) {
	const op = "api.post_query"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	resp, err := h.deps.Query(r.Context(), rideID, req)
	if err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, query.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		case errors.Is(err, query.ErrNoMatchingData):
			writeError(w, http.StatusUnprocessableEntity, "no_matching_data", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
