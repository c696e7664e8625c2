package handlers

import "net/http"

// Health returns the service health status. This is a public endpoint (no
// auth required).
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
