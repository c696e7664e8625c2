package tuya

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"sunrised/internal/errors"
)

// DefaultTimeout bounds connect, send and receive on a session.
const DefaultTimeout = 5 * time.Second

// maxResponseSize is the largest response read per exchange.
const maxResponseSize = 1024

// Session owns a single TCP connection to one bulb. Commands are strict
// request/response with one outstanding request at a time, tagged with a
// sequence counter that is monotonic for the lifetime of the connection.
// Sessions are not safe for concurrent use; each ramp gets its own.
type Session struct {
	device  Device
	logger  *slog.Logger
	timeout time.Duration
	conn    net.Conn
	seq     uint32
}

// NewSession creates a session for a device. The connection is not opened
// until Open is called.
func NewSession(device Device, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		device:  device,
		logger:  logger,
		timeout: DefaultTimeout,
	}
}

// Device returns the descriptor this session talks to.
func (s *Session) Device() Device {
	return s.device
}

// Open establishes the TCP connection, discarding any prior connection
// first. Reopening restarts the sequence counter; the device does not
// enforce ordering across connections.
func (s *Session) Open() error {
	s.Close()

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(s.device.Host, fmt.Sprintf("%d", Port)), s.timeout)
	if err != nil {
		return errors.DeviceUnavailablef("failed to connect to %s:%d: %v", s.device.Host, Port, err)
	}
	s.conn = conn
	s.seq = 0
	s.logger.Debug("session opened", "device", s.device.ID, "host", s.device.Host)
	return nil
}

// Close closes the connection. Safe to call multiple times or on a session
// that was never opened.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// exchange writes one frame and reads the response, both under the session
// timeout. Any socket failure is a transport error.
func (s *Session) exchange(frame []byte) ([]byte, error) {
	if s.conn == nil {
		return nil, errors.DeviceUnavailablef("session for %s is not open", s.device.ID)
	}
	deadline := time.Now().Add(s.timeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, errors.DeviceUnavailablef("failed to set deadline: %v", err)
	}
	if _, err := s.conn.Write(frame); err != nil {
		return nil, errors.DeviceUnavailablef("failed to send to %s: %v", s.device.ID, err)
	}
	resp := make([]byte, maxResponseSize)
	n, err := s.conn.Read(resp)
	if err != nil {
		return nil, errors.DeviceUnavailablef("failed to read from %s: %v", s.device.ID, err)
	}
	return resp[:n], nil
}

// SetWhiteMode turns the bulb on in white mode at the given brightness and
// color temperature, clamped to the device ranges. It returns false with a
// nil error when the device answers but rejects the command; a non-nil
// error means the transport failed and the caller may reconnect.
func (s *Session) SetWhiteMode(brightness, colorTemp int) (bool, error) {
	brightness = clamp(brightness, 10, 1000)
	colorTemp = clamp(colorTemp, 0, 1000)

	return s.sendControl(map[string]any{
		DPPower:      true,
		DPMode:       "white",
		DPBrightness: brightness,
		DPColorTemp:  colorTemp,
	})
}

// SetPower switches the bulb on or off without touching mode or levels.
func (s *Session) SetPower(on bool) (bool, error) {
	return s.sendControl(map[string]any{DPPower: on})
}

func (s *Session) sendControl(dps map[string]any) (bool, error) {
	s.seq++
	frame, err := EncodeControl(s.device.ID, s.device.Key, s.seq, dps)
	if err != nil {
		return false, err
	}
	resp, err := s.exchange(frame)
	if err != nil {
		return false, err
	}
	ok := DecodeAck(resp)
	if !ok {
		s.logger.Debug("device rejected command", "device", s.device.ID, "seq", s.seq, "response_len", len(resp))
	}
	return ok, nil
}

// Status queries the bulb's current data points.
func (s *Session) Status() (*DeviceStatus, error) {
	s.seq++
	frame, err := EncodeStatusRequest(s.device.ID, s.device.Key, s.seq)
	if err != nil {
		return nil, err
	}
	resp, err := s.exchange(frame)
	if err != nil {
		return nil, err
	}
	return DecodeStatus(s.device.Key, resp)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
