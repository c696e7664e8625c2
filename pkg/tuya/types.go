package tuya

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrCommandRejected = errors.New("device rejected command")
)

// Port is the fixed local-control TCP port Tuya devices listen on.
const Port = 6668

// Data point keys for white-mode bulb control.
const (
	DPPower      = "20" // bool
	DPMode       = "21" // string, "white" for white mode
	DPBrightness = "22" // int, 10-1000
	DPColorTemp  = "23" // int, 0-1000
)

// Device describes one configured Tuya bulb. Immutable once loaded except
// for Host (refreshed by UDP discovery when DHCP moves the device) and
// LastSeen.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Host     string    `json:"host"`
	Key      string    `json:"-"` // 16-byte local key, never serialized
	Version  string    `json:"version"`
	Enabled  bool      `json:"enabled"`
	LastSeen time.Time `json:"last_seen"` // Timestamp of the last successful communication
}

// DeviceStatus is the decoded white-mode state reported by a bulb in
// response to a status query.
type DeviceStatus struct {
	Power      bool           `json:"power"`
	Mode       string         `json:"mode"`
	Brightness int            `json:"brightness"`
	ColorTemp  int            `json:"color_temp"`
	DPS        map[string]any `json:"dps"`
}
