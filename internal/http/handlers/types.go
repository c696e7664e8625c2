package handlers

import (
	"encoding/json"
	"net/http"

	"sunrised/internal/ramp"
	"sunrised/internal/schedule"
	"sunrised/pkg/tuya"
)

// ScheduleProvider exposes the schedule state for status responses.
type ScheduleProvider interface {
	Snapshot() schedule.Status
}

// DeviceLister exposes the configured devices.
type DeviceLister interface {
	GetDevices() []tuya.Device
}

// RampStarter starts a ramp for every enabled device and returns the run
// descriptors.
type RampStarter interface {
	StartRamp(durationSeconds int) []ramp.RunInfo
	ActiveRamps() []ramp.RunInfo
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
