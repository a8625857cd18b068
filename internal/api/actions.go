package api

import (
	"encoding/json"
	"net/http"

	"github.com/foxzi/postq/internal/control"
)

// ActionRequest is the request body for POST /api/v1/actions
type ActionRequest struct {
	Op  string   `json:"op"` // hold, release, requeue, delete
	IDs []string `json:"ids"`
}

// ActionOutcome is the per-message result of a bulk action
type ActionOutcome struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ActionResponse is the response for POST /api/v1/actions
type ActionResponse struct {
	Batch   string          `json:"batch"`
	Op      string          `json:"op"`
	Results []ActionOutcome `json:"results"`
}

// handleActions handles POST /api/v1/actions. Partial failures are
// reported per message; the batch is never aborted as a whole.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		s.sendError(w, http.StatusBadRequest, "ids is required")
		return
	}

	result, err := s.dispatcher.Apply(r.Context(), control.Operation(req.Op), req.IDs)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := ActionResponse{
		Batch: result.Batch,
		Op:    string(result.Op),
	}
	for _, o := range result.Outcomes {
		s.metrics.ObserveAction(string(result.Op), o.Err)
		outcome := ActionOutcome{ID: o.ID, OK: o.Err == nil}
		if o.Err != nil {
			outcome.Error = o.Err.Error()
		}
		resp.Results = append(resp.Results, outcome)
	}

	s.sendJSON(w, http.StatusOK, resp)
}
