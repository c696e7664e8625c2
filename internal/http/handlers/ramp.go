package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"sunrised/internal/ramp"
)

// RampHandler starts manual ramps over the HTTP API.
type RampHandler struct {
	Ramps RampStarter
}

// rampRequest is the body of POST /api/v1/ramp. A zero duration uses the
// configured ramp duration.
type rampRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

// rampResponse lists the runs that were started.
type rampResponse struct {
	Runs []ramp.RunInfo `json:"runs"`
}

// Start handles POST /api/v1/ramp.
func (h *RampHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req rampRequest
	if r.Body != nil {
		// An empty body is fine; only reject malformed JSON.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if req.DurationSeconds < 0 {
		writeError(w, http.StatusBadRequest, "duration_seconds must not be negative")
		return
	}

	runs := h.Ramps.StartRamp(req.DurationSeconds)
	if len(runs) == 0 {
		writeError(w, http.StatusConflict, "no enabled devices or ramps already running")
		return
	}
	writeJSON(w, http.StatusAccepted, rampResponse{Runs: runs})
}
