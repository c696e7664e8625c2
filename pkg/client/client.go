// Package client talks to the sunrised daemon over its unix control socket.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
)

var dial = net.Dial

// ClientInterface defines the methods for interacting with sunrised.
// Used for testability and mocking in the CLI.
type ClientInterface interface {
	Ping() error
	GetVersion() (map[string]any, error)
	GetStatus() (map[string]any, error)
	NextRamp() (map[string]any, error)
	GetDevices() ([]map[string]any, error)
	ProbeDevice(id string) (map[string]any, error)
	SetDevicePower(id string, on bool) error
	StartRamp(durationSeconds int) ([]map[string]any, error)
	CancelRamp(runID string) error
}

// Client represents a connection to sunrised
type Client struct {
	logger *slog.Logger
	socket string
}

// New creates a new client. An empty socket path falls back to the XDG
// runtime directory.
func New(logger *slog.Logger, socket string) *Client {
	if socket == "" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			socket = filepath.Join(dir, "sunrised.sock")
			logger.Debug("Using XDG runtime directory for socket", "dir", dir, "socket", socket)
		} else {
			uid := os.Getuid()
			socket = filepath.Join("/run/user", fmt.Sprintf("%d", uid), "sunrised.sock")
			logger.Debug("Using /run/user for socket", "uid", uid, "socket", socket)
		}
	} else {
		logger.Debug("Using provided socket path", "socket", socket)
	}

	return &Client{
		logger: logger,
		socket: socket,
	}
}

// request sends one action to sunrised and decodes the response.
func (c *Client) request(action string, data map[string]any) (map[string]any, error) {
	c.logger.Debug("Connecting to socket", "socket", c.socket)
	conn, err := dial("unix", c.socket)
	if err != nil {
		c.logger.Error("Failed to connect to socket", "error", err, "socket", c.socket)
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	req := map[string]any{"action": action}
	if data != nil {
		req["data"] = data
	}

	c.logger.Debug("Encoding request", "request", req)
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		c.logger.Error("Failed to encode request", "error", err)
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp map[string]any
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		c.logger.Error("Failed to decode response", "error", err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	c.logger.Debug("Received response", "response", resp)

	if errMsg, ok := resp["error"].(string); ok {
		c.logger.Error("Server returned error", "error", errMsg)
		return nil, fmt.Errorf("server error: %s", errMsg)
	}
	return resp, nil
}

// Ping checks the daemon is reachable
func (c *Client) Ping() error {
	_, err := c.request("ping", nil)
	return err
}

// GetVersion returns the daemon version
func (c *Client) GetVersion() (map[string]any, error) {
	return c.request("version", nil)
}

// GetStatus returns the schedule snapshot and active ramps
func (c *Client) GetStatus() (map[string]any, error) {
	return c.request("get_status", nil)
}

// NextRamp returns the next scheduled ramp start
func (c *Client) NextRamp() (map[string]any, error) {
	return c.request("next_ramp", nil)
}

// GetDevices returns all configured devices
func (c *Client) GetDevices() ([]map[string]any, error) {
	resp, err := c.request("list_devices", nil)
	if err != nil {
		return nil, err
	}
	raw, _ := resp["devices"].([]any)
	devices := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		if m, ok := d.(map[string]any); ok {
			devices = append(devices, m)
		}
	}
	return devices, nil
}

// ProbeDevice checks a device's reachability and current state
func (c *Client) ProbeDevice(id string) (map[string]any, error) {
	return c.request("probe_device", map[string]any{"id": id})
}

// SetDevicePower turns a device on or off
func (c *Client) SetDevicePower(id string, on bool) error {
	_, err := c.request("set_device_power", map[string]any{"id": id, "on": on})
	return err
}

// StartRamp starts a manual ramp on every enabled device. A zero duration
// uses the daemon's configured ramp duration.
func (c *Client) StartRamp(durationSeconds int) ([]map[string]any, error) {
	data := map[string]any{}
	if durationSeconds > 0 {
		data["duration_seconds"] = durationSeconds
	}
	resp, err := c.request("start_ramp", data)
	if err != nil {
		return nil, err
	}
	raw, _ := resp["runs"].([]any)
	runs := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			runs = append(runs, m)
		}
	}
	return runs, nil
}

// CancelRamp aborts an in-flight ramp by run ID
func (c *Client) CancelRamp(runID string) error {
	_, err := c.request("cancel_ramp", map[string]any{"run_id": runID})
	return err
}
