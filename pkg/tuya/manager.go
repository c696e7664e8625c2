package tuya

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Manager tracks the configured devices and hands out sessions. Device
// descriptors are loaded once at startup; discovery may later refresh a
// device's address and last-seen timestamp.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  *slog.Logger
}

// NewManager creates a manager over the configured devices.
func NewManager(logger *slog.Logger, devices []Device) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		devices: make(map[string]*Device, len(devices)),
		logger:  logger,
	}
	for i := range devices {
		d := devices[i]
		m.devices[d.ID] = &d
	}
	return m
}

// GetDevices returns all configured devices sorted by ID.
func (m *Manager) GetDevices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetDevice returns one device by ID.
func (m *Manager) GetDevice(id string) (Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return *d, nil
}

// EnabledDevices returns the devices that take part in ramps, sorted by ID.
func (m *Manager) EnabledDevices() []Device {
	all := m.GetDevices()
	out := all[:0]
	for _, d := range all {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// NewSession creates a session for the device with the given ID.
func (m *Manager) NewSession(id string) (*Session, error) {
	d, err := m.GetDevice(id)
	if err != nil {
		return nil, err
	}
	return NewSession(d, m.logger), nil
}

// UpdateAddress refreshes a device's host, typically after a discovery
// broadcast shows DHCP moved it. Returns true when a configured device
// matched the ID.
func (m *Manager) UpdateAddress(id, host string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return false
	}
	if d.Host != host {
		m.logger.Info("device address changed", "device", id, "old", d.Host, "new", host)
		d.Host = host
	}
	d.LastSeen = time.Now()
	return true
}

// MarkSeen stamps a device's last-seen time after a successful exchange.
func (m *Manager) MarkSeen(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		d.LastSeen = time.Now()
	}
}

// Probe opens a short-lived session and queries the device's current state.
func (m *Manager) Probe(id string) (*DeviceStatus, error) {
	sess, err := m.NewSession(id)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Open(); err != nil {
		return nil, err
	}
	status, err := sess.Status()
	if err != nil {
		return nil, err
	}
	m.MarkSeen(id)
	return status, nil
}

// SetPower switches a device on or off over a short-lived session.
func (m *Manager) SetPower(id string, on bool) error {
	sess, err := m.NewSession(id)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Open(); err != nil {
		return err
	}
	ok, err := sess.SetPower(on)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCommandRejected
	}
	m.MarkSeen(id)
	return nil
}
