package tuya

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"net"
	"time"

	"sunrised/internal/errors"
)

// Tuya 3.3 devices announce themselves every few seconds with an encrypted
// UDP broadcast on port 6667. The broadcast payload is a regular protocol
// frame whose body is AES-ECB encrypted with a fixed well-known key.
const (
	discoveryPort = 6667

	// udpSecret is the fixed secret all 3.x devices use for broadcasts;
	// the actual AES key is its MD5 digest.
	udpSecret = "yGAdlopoPVldABfn"
)

// udpKey returns the 16-byte AES key for discovery broadcasts.
func udpKey() []byte {
	sum := md5.Sum([]byte(udpSecret))
	return sum[:]
}

// broadcast is the announcement a device sends on the discovery port.
type broadcast struct {
	GwID       string `json:"gwId"`
	IP         string `json:"ip"`
	Version    string `json:"version"`
	ProductKey string `json:"productKey"`
}

// decodeBroadcast strips the frame header and trailer from a discovery
// packet and decrypts the announcement.
func decodeBroadcast(pkt []byte) (*broadcast, error) {
	if len(pkt) <= headerLen+4+trailerLen {
		return nil, errors.Protocolf("broadcast too short: %d bytes", len(pkt))
	}
	body := pkt[headerLen+4 : len(pkt)-trailerLen]

	plain, err := decryptECB(udpKey(), body)
	if err != nil {
		return nil, err
	}
	plain, err = pkcs7Unpad(plain)
	if err != nil {
		return nil, err
	}

	var b broadcast
	if err := json.Unmarshal(plain, &b); err != nil {
		return nil, errors.Protocolf("failed to decode broadcast: %v", err)
	}
	return &b, nil
}

// Listen receives device broadcasts until the context is cancelled,
// refreshing the address and last-seen time of any configured device that
// announces itself. Broadcasts from unknown devices are logged at debug and
// ignored.
func (m *Manager) Listen(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: discoveryPort}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return errors.WrapErrorf(err, "failed to listen on discovery port %d", discoveryPort)
	}
	defer conn.Close()

	m.logger.Info("listening for device broadcasts", "port", discoveryPort)

	buf := make([]byte, maxResponseSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Short read deadline so cancellation is noticed promptly.
		if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			return errors.WrapErrorf(err, "failed to set read deadline")
		}
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			m.logger.Error("discovery read failed", "error", err)
			continue
		}

		b, err := decodeBroadcast(buf[:n])
		if err != nil {
			m.logger.Debug("ignoring undecodable broadcast", "src", src, "error", err)
			continue
		}
		m.handleBroadcast(b, src)
	}
}

func (m *Manager) handleBroadcast(b *broadcast, src *net.UDPAddr) {
	host := b.IP
	if host == "" && src != nil {
		host = src.IP.String()
	}
	if b.GwID == "" || host == "" {
		return
	}
	if !m.UpdateAddress(b.GwID, host) {
		m.logger.Debug("broadcast from unconfigured device", "device", b.GwID, "ip", host, "version", b.Version)
		return
	}
	m.logger.Debug("device announced", "device", b.GwID, "ip", host, "version", b.Version)
}
