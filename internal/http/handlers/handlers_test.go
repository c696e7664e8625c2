package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunrised/internal/ramp"
	"sunrised/internal/schedule"
	"sunrised/pkg/tuya"
)

type fakeSchedule struct {
	status schedule.Status
}

func (f *fakeSchedule) Snapshot() schedule.Status { return f.status }

type fakeDevices struct {
	devices []tuya.Device
}

func (f *fakeDevices) GetDevices() []tuya.Device { return f.devices }

type fakeRamps struct {
	started []int
	runs    []ramp.RunInfo
	active  []ramp.RunInfo
}

func (f *fakeRamps) StartRamp(durationSeconds int) []ramp.RunInfo {
	f.started = append(f.started, durationSeconds)
	return f.runs
}

func (f *fakeRamps) ActiveRamps() []ramp.RunInfo { return f.active }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestStatusGet(t *testing.T) {
	h := &StatusHandler{
		Schedule: &fakeSchedule{status: schedule.Status{
			Mode:            schedule.ModeSunrise,
			NextStart:       "05:30:00",
			DurationSeconds: 1800,
		}},
		Ramps: &fakeRamps{active: []ramp.RunInfo{
			{ID: "run-1", DeviceID: "dev-a", Started: time.Now(), Duration: 1800},
		}},
	}

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	sched := body["schedule"].(map[string]any)
	assert.Equal(t, "sunrise", sched["mode"])
	assert.Equal(t, "05:30:00", sched["next_start"])

	active := body["active_ramps"].([]any)
	require.Len(t, active, 1)
	assert.Equal(t, "run-1", active[0].(map[string]any)["id"])
}

func TestDevicesList(t *testing.T) {
	h := &DeviceHandler{Devices: &fakeDevices{devices: []tuya.Device{
		{ID: "dev-a", Name: "bedroom", Host: "192.0.2.1", Key: "secretsecretsecr", Enabled: true},
	}}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	devices := decodeBody(t, rec)["devices"].([]any)
	require.Len(t, devices, 1)

	first := devices[0].(map[string]any)
	assert.Equal(t, "dev-a", first["id"])
	assert.NotContains(t, first, "key", "local keys never appear in API responses")
	assert.NotContains(t, rec.Body.String(), "secretsecretsecr")
}

func TestRampStart(t *testing.T) {
	ramps := &fakeRamps{runs: []ramp.RunInfo{{ID: "run-1", DeviceID: "dev-a", Duration: 600}}}
	h := &RampHandler{Ramps: ramps}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ramp", strings.NewReader(`{"duration_seconds":600}`))
	h.Start(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int{600}, ramps.started)

	runs := decodeBody(t, rec)["runs"].([]any)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].(map[string]any)["id"])
}

func TestRampStartEmptyBody(t *testing.T) {
	ramps := &fakeRamps{runs: []ramp.RunInfo{{ID: "run-1"}}}
	h := &RampHandler{Ramps: ramps}

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ramp", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int{0}, ramps.started, "empty body means configured duration")
}

func TestRampStartBadRequests(t *testing.T) {
	h := &RampHandler{Ramps: &fakeRamps{}}

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ramp", strings.NewReader(`{garbage`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ramp", strings.NewReader(`{"duration_seconds":-5}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRampStartConflictWhenNothingStarts(t *testing.T) {
	h := &RampHandler{Ramps: &fakeRamps{}}

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ramp", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
