package tuya

import (
	"bytes"
	"crypto/aes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"

	"sunrised/internal/errors"
)

// Tuya local protocol 3.3 framing constants. The frame layout is four
// big-endian 32-bit header fields (prefix magic, sequence, command, length),
// the payload, a CRC32 over header[4:]+payload, and a suffix magic.
const (
	prefixMagic = 0x000055aa
	suffixMagic = 0x0000aa55

	// CmdControl is the SET command carrying data points.
	CmdControl = 0x07
	// CmdStatus is the DP_QUERY command requesting current data points.
	CmdStatus = 0x0a

	// ProtocolVersion is the only wire version this codec speaks.
	ProtocolVersion = "3.3"

	headerLen  = 16
	trailerLen = 8 // CRC32 + suffix magic
)

// versionMarker is the 15-byte prefix placed before the ciphertext of a
// control payload: the ASCII version followed by 12 zero bytes. Status
// queries omit it.
var versionMarker = append([]byte(ProtocolVersion), make([]byte, 12)...)

// controlPayload is the cleartext body of a SET command. Field order is the
// declaration order, which keeps encoded frames byte-identical across runs.
type controlPayload struct {
	DevID string         `json:"devId"`
	UID   string         `json:"uid"`
	T     string         `json:"t"`
	DPS   map[string]any `json:"dps"`
}

// statusPayload is the cleartext body of a DP_QUERY command.
type statusPayload struct {
	GwID  string `json:"gwId"`
	DevID string `json:"devId"`
	UID   string `json:"uid"`
	T     string `json:"t"`
}

// statusBody is the decrypted body of a DP_QUERY response.
type statusBody struct {
	DPS map[string]any `json:"dps"`
}

// pkcs7Pad pads data to the AES block size. A length already on a block
// boundary gains a full block of padding.
func pkcs7Pad(data []byte) []byte {
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

// pkcs7Unpad strips PKCS#7 padding, validating the pad bytes.
func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.Protocolf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, errors.Protocolf("invalid padding length %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.Protocolf("inconsistent padding byte %#x", b)
		}
	}
	return data[:len(data)-padLen], nil
}

// encryptECB encrypts plain (already padded) with AES-128 in ECB mode, each
// block encrypted independently with no chaining.
func encryptECB(key, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.WrapErrorf(err, "failed to create cipher")
	}
	if len(plain)%aes.BlockSize != 0 {
		return nil, errors.Protocolf("plaintext length %d is not block aligned", len(plain))
	}
	out := make([]byte, len(plain))
	for i := 0; i < len(plain); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], plain[i:i+aes.BlockSize])
	}
	return out, nil
}

// decryptECB decrypts ciphertext with AES-128 in ECB mode.
func decryptECB(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.WrapErrorf(err, "failed to create cipher")
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.Protocolf("ciphertext length %d is not block aligned", len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}
	return out, nil
}

// buildFrame wraps an encrypted payload in the 3.3 frame: header, payload,
// CRC32 over header[4:]+payload, suffix magic. The length field counts the
// payload plus the 8-byte trailer.
func buildFrame(seq, cmd uint32, payload []byte) []byte {
	frame := make([]byte, headerLen+len(payload)+trailerLen)
	binary.BigEndian.PutUint32(frame[0:4], prefixMagic)
	binary.BigEndian.PutUint32(frame[4:8], seq)
	binary.BigEndian.PutUint32(frame[8:12], cmd)
	binary.BigEndian.PutUint32(frame[12:16], uint32(len(payload)+trailerLen))
	copy(frame[headerLen:], payload)

	crc := crc32.ChecksumIEEE(frame[4 : headerLen+len(payload)])
	binary.BigEndian.PutUint32(frame[headerLen+len(payload):], crc)
	binary.BigEndian.PutUint32(frame[headerLen+len(payload)+4:], suffixMagic)
	return frame
}

// EncodeControl builds an encrypted SET frame carrying the given data points.
// Pure transform: identical inputs yield byte-identical frames.
func EncodeControl(deviceID, key string, seq uint32, dps map[string]any) ([]byte, error) {
	payload, err := json.Marshal(controlPayload{
		DevID: deviceID,
		UID:   deviceID,
		T:     "0",
		DPS:   dps,
	})
	if err != nil {
		return nil, errors.WrapErrorf(err, "failed to marshal control payload")
	}

	encrypted, err := encryptECB([]byte(key), pkcs7Pad(payload))
	if err != nil {
		return nil, err
	}

	// The version marker rides in cleartext directly before the ciphertext.
	body := make([]byte, 0, len(versionMarker)+len(encrypted))
	body = append(body, versionMarker...)
	body = append(body, encrypted...)
	return buildFrame(seq, CmdControl, body), nil
}

// EncodeStatusRequest builds an encrypted DP_QUERY frame. Unlike control
// frames, 3.3 status queries carry no version marker.
func EncodeStatusRequest(deviceID, key string, seq uint32) ([]byte, error) {
	payload, err := json.Marshal(statusPayload{
		GwID:  deviceID,
		DevID: deviceID,
		UID:   deviceID,
		T:     "0",
	})
	if err != nil {
		return nil, errors.WrapErrorf(err, "failed to marshal status payload")
	}
	encrypted, err := encryptECB([]byte(key), pkcs7Pad(payload))
	if err != nil {
		return nil, err
	}
	return buildFrame(seq, CmdStatus, encrypted), nil
}

// DecodeAck reports whether a raw device response acknowledges success: at
// least 20 bytes with a zero big-endian return code at offset 16. Any
// response body past the return code is ignored.
func DecodeAck(resp []byte) bool {
	if len(resp) < 20 {
		return false
	}
	return binary.BigEndian.Uint32(resp[16:20]) == 0
}

// DecodeStatus parses a DP_QUERY response and decrypts its body into the
// reported data points.
func DecodeStatus(key string, resp []byte) (*DeviceStatus, error) {
	if len(resp) < headerLen+4+trailerLen {
		return nil, errors.Protocolf("response too short: %d bytes", len(resp))
	}
	if binary.BigEndian.Uint32(resp[0:4]) != prefixMagic {
		return nil, errors.Protocolf("bad prefix magic %#x", binary.BigEndian.Uint32(resp[0:4]))
	}
	length := int(binary.BigEndian.Uint32(resp[12:16]))
	if headerLen+length > len(resp) || length < 4+trailerLen {
		return nil, errors.Protocolf("bad length field %d for %d-byte response", length, len(resp))
	}
	if retcode := binary.BigEndian.Uint32(resp[16:20]); retcode != 0 {
		return nil, errors.Protocolf("device returned code %d", retcode)
	}

	body := resp[20 : headerLen+length-trailerLen]
	// Some firmware prefixes the response body with the version marker.
	if bytes.HasPrefix(body, []byte(ProtocolVersion)) && len(body) >= len(versionMarker) {
		body = body[len(versionMarker):]
	}

	plain, err := decryptECB([]byte(key), body)
	if err != nil {
		return nil, err
	}
	plain, err = pkcs7Unpad(plain)
	if err != nil {
		return nil, err
	}

	var decoded statusBody
	if err := json.Unmarshal(plain, &decoded); err != nil {
		return nil, errors.Protocolf("failed to decode status body: %v", err)
	}
	return statusFromDPS(decoded.DPS), nil
}

// statusFromDPS maps raw data points to a DeviceStatus.
func statusFromDPS(dps map[string]any) *DeviceStatus {
	st := &DeviceStatus{DPS: dps}
	if v, ok := dps[DPPower].(bool); ok {
		st.Power = v
	}
	if v, ok := dps[DPMode].(string); ok {
		st.Mode = v
	}
	if v, ok := dps[DPBrightness].(float64); ok {
		st.Brightness = int(v)
	}
	if v, ok := dps[DPColorTemp].(float64); ok {
		st.ColorTemp = int(v)
	}
	return st
}
