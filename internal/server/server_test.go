package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunrised/internal/config"
	"sunrised/internal/curve"
	"sunrised/internal/schedule"
	"sunrised/pkg/tuya"
)

func testConfig(socketPath string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{UnixSocket: socketPath},
		Schedule: config.ScheduleConfig{
			Mode:                "static",
			StaticTime:          "23:59",
			RampDurationMinutes: 30,
			PollIntervalSeconds: 60,
		},
		Curve: curve.Default(),
	}
}

// startTestServer runs a server on a temp socket with one enabled device
// pointing at a closed local port, so ramp sessions fail fast.
func startTestServer(t *testing.T) (*Server, net.Conn) {
	t.Helper()
	logger := slog.Default()

	socketPath := filepath.Join(t.TempDir(), "test.sock")
	cfg := testConfig(socketPath)

	devices := tuya.NewManager(logger, []tuya.Device{
		{ID: "dev-a", Name: "bedroom", Host: "127.0.0.1", Key: "0123456789abcdef", Enabled: true},
		{ID: "dev-b", Name: "spare", Host: "127.0.0.1", Key: "0123456789abcdef", Enabled: false},
	})
	evaluator := schedule.New(logger, nil, nil, cfg.ScheduleParams())

	srv := New(logger, cfg, devices, evaluator, "test-version")
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, conn
}

// roundTrip sends one request line and decodes the response line.
func roundTrip(t *testing.T, conn net.Conn, req map[string]any) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, json.NewEncoder(conn).Encode(req))

	var resp map[string]any
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func TestServerPing(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "ping", "id": "req-1"})
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "pong", resp["message"])
	assert.Equal(t, "req-1", resp["id"])
}

func TestServerVersion(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "version"})
	assert.Equal(t, "test-version", resp["version"])
}

func TestServerGetStatus(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "get_status"})
	require.Equal(t, "ok", resp["status"])

	sched, ok := resp["schedule"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "static", sched["mode"])
	assert.Equal(t, float64(1800), sched["duration_seconds"])
}

func TestServerNextRamp(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "next_ramp"})
	assert.Equal(t, "static", resp["mode"])
	assert.Equal(t, float64(1800), resp["duration_seconds"])
	assert.Equal(t, false, resp["triggered_today"])
}

func TestServerListDevices(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "list_devices"})
	devices, ok := resp["devices"].([]any)
	require.True(t, ok)
	require.Len(t, devices, 2)

	first := devices[0].(map[string]any)
	assert.Equal(t, "dev-a", first["id"])
	assert.NotContains(t, first, "key", "local keys never leave the daemon")
}

func TestServerProbeUnreachableDevice(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "probe_device",
		"data":   map[string]any{"id": "dev-a"},
	})
	assert.Equal(t, false, resp["reachable"])
	assert.NotEmpty(t, resp["reason"])
}

func TestServerProbeMissingID(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "probe_device"})
	assert.NotEmpty(t, resp["error"])
}

func TestServerSetDevicePowerValidation(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "set_device_power"})
	assert.NotEmpty(t, resp["error"])

	resp = roundTrip(t, conn, map[string]any{
		"action": "set_device_power",
		"data":   map[string]any{"id": "dev-a"},
	})
	assert.NotEmpty(t, resp["error"])
}

func TestServerStartRamp(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "start_ramp",
		"data":   map[string]any{"duration_seconds": float64(5)},
	})
	require.Equal(t, "ok", resp["status"])

	runs, ok := resp["runs"].([]any)
	require.True(t, ok)
	require.Len(t, runs, 1, "only enabled devices ramp")

	run := runs[0].(map[string]any)
	assert.Equal(t, "dev-a", run["device_id"])
	assert.Equal(t, float64(5), run["duration_seconds"])
	assert.NotEmpty(t, run["id"])
}

func TestServerStartRampNegativeDuration(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "start_ramp",
		"data":   map[string]any{"duration_seconds": float64(-1)},
	})
	assert.NotEmpty(t, resp["error"])
}

func TestServerCancelRampUnknown(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"action": "cancel_ramp",
		"data":   map[string]any{"run_id": "no-such-run"},
	})
	assert.NotEmpty(t, resp["error"])

	resp = roundTrip(t, conn, map[string]any{"action": "cancel_ramp"})
	assert.NotEmpty(t, resp["error"])
}

func TestServerUnknownAction(t *testing.T) {
	_, conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"action": "reticulate"})
	assert.Contains(t, resp["error"], "unknown action")
}

func TestServerInvalidJSON(t *testing.T) {
	_, conn := startTestServer(t)

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := conn.Write([]byte("this is not json\n"))
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	assert.NotEmpty(t, resp["error"])

	// The connection stays usable after a malformed line
	resp = roundTrip(t, conn, map[string]any{"action": "ping"})
	assert.Equal(t, "pong", resp["message"])
}

func TestServerApplyConfig(t *testing.T) {
	srv, conn := startTestServer(t)

	fresh := testConfig(srv.socketPath)
	fresh.Schedule.RampDurationMinutes = 45
	srv.ApplyConfig(fresh)

	resp := roundTrip(t, conn, map[string]any{"action": "next_ramp"})
	assert.Equal(t, float64(45*60), resp["duration_seconds"])
}

func TestServerMultipleRequestsPerConnection(t *testing.T) {
	_, conn := startTestServer(t)

	for i := 0; i < 5; i++ {
		resp := roundTrip(t, conn, map[string]any{"action": "ping"})
		require.Equal(t, "pong", resp["message"])
	}
}
