package handlers

import (
	"net/http"

	"sunrised/pkg/tuya"
)

// DeviceHandler serves the configured device list.
type DeviceHandler struct {
	Devices DeviceLister
}

// devicesResponse is the body of GET /api/v1/devices.
type devicesResponse struct {
	Devices []tuya.Device `json:"devices"`
}

// List handles GET /api/v1/devices.
func (h *DeviceHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, devicesResponse{Devices: h.Devices.GetDevices()})
}
