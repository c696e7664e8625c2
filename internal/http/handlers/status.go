package handlers

import (
	"net/http"

	"sunrised/internal/ramp"
	"sunrised/internal/schedule"
)

// StatusHandler serves the schedule snapshot and active ramps.
type StatusHandler struct {
	Schedule ScheduleProvider
	Ramps    RampStarter
}

// statusResponse is the body of GET /api/v1/status.
type statusResponse struct {
	Schedule    schedule.Status `json:"schedule"`
	ActiveRamps []ramp.RunInfo  `json:"active_ramps"`
}

// Get handles GET /api/v1/status.
func (h *StatusHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Schedule:    h.Schedule.Snapshot(),
		ActiveRamps: h.Ramps.ActiveRamps(),
	})
}
