// Package subelement implements the Wi-Fi Direct WFD sub-element TLV
// codec for P2P advertisement. RTSP capability negotiation in
// internal/wfd does not use it: those wfd_* parameters are built as text
// there (original_source's disp.h shares these enums between wifid
// sub-element parsing and wfd-session capability negotiation; this repo
// keeps the two separate).
package subelement

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// unknownFmt is the format string for unrecognized enum values with numeric code.
const unknownFmt = "Unknown(%d)"

// ID identifies a WFD sub-element type (Wi-Fi Display Technical
// Specification Section 5.1.2).
type ID uint8

const (
	// IDDeviceInfo carries WFD device type, session availability and the
	// control-port/max-throughput fields.
	IDDeviceInfo ID = 0
	// IDAssociatedBSSID carries the BSSID of the in-use WFD session's AP.
	IDAssociatedBSSID ID = 1
	// IDAudioFormats advertises supported audio codecs.
	IDAudioFormats ID = 2
	// IDVideoFormats advertises supported video formats/profiles/levels.
	IDVideoFormats ID = 3
	// ID3DVideoFormats advertises supported stereoscopic video formats.
	ID3DVideoFormats ID = 4
	// IDContentProtection advertises HDCP 2.0/2.1 support.
	IDContentProtection ID = 5
	// IDCoupledSink carries coupled-sink status and address.
	IDCoupledSink ID = 6
	// IDExtendedCapability advertises UIBC and I2C support bits.
	IDExtendedCapability ID = 7
	// IDLocalIP carries the device's local IP address on the WFD link.
	IDLocalIP ID = 8
)

// String returns the human-readable name of the sub-element ID.
func (id ID) String() string {
	switch id {
	case IDDeviceInfo:
		return "DeviceInfo"
	case IDAssociatedBSSID:
		return "AssociatedBSSID"
	case IDAudioFormats:
		return "AudioFormats"
	case IDVideoFormats:
		return "VideoFormats"
	case ID3DVideoFormats:
		return "3DVideoFormats"
	case IDContentProtection:
		return "ContentProtection"
	case IDCoupledSink:
		return "CoupledSink"
	case IDExtendedCapability:
		return "ExtendedCapability"
	case IDLocalIP:
		return "LocalIP"
	default:
		return fmt.Sprintf(unknownFmt, uint8(id))
	}
}

// ErrTruncated indicates a sub-element's declared length exceeds the
// available bytes.
var ErrTruncated = errors.New("subelement: truncated")

// DeviceType enumerates the WFD device role bits of the Device Info
// sub-element (bits 0-1 of the 16-bit device-info field).
type DeviceType uint8

const (
	DeviceTypeSource          DeviceType = 0
	DeviceTypePrimarySink     DeviceType = 1
	DeviceTypeSecondarySink   DeviceType = 2
	DeviceTypeSourceOrPrimary DeviceType = 3
)

// DeviceInfo is the decoded form of the Device Info sub-element (id 0).
type DeviceInfo struct {
	Type                   DeviceType
	SessionAvailable       bool
	WSDSupported           bool
	PreferredConnectivity  bool // true = TDLS, false = P2P
	ContentProtectionSupp  bool
	CoupledSinkSupported   bool
	ControlPort            uint16
	MaxThroughputMbps      uint16
}

// deviceInfoBit masks within the 16-bit device-info field (Table 27 of the
// WFD technical specification).
const (
	bitSessionAvailable = 1 << 4
	bitCoupledSink      = 1 << 6
	bitContentProtect   = 1 << 8
	bitPreferredConn    = 1 << 9
	bitWSD              = 1 << 10
)

// EncodeDeviceInfo renders the Device Info sub-element, including its
// 1-byte ID, 2-byte length, and 6-byte body.
func EncodeDeviceInfo(info DeviceInfo) []byte {
	field := uint16(info.Type & 0x3)
	if info.SessionAvailable {
		field |= bitSessionAvailable
	}
	if info.CoupledSinkSupported {
		field |= bitCoupledSink
	}
	if info.ContentProtectionSupp {
		field |= bitContentProtect
	}
	if info.PreferredConnectivity {
		field |= bitPreferredConn
	}
	if info.WSDSupported {
		field |= bitWSD
	}

	body := make([]byte, 6)
	binary.BigEndian.PutUint16(body[0:2], field)
	binary.BigEndian.PutUint16(body[2:4], info.ControlPort)
	binary.BigEndian.PutUint16(body[4:6], info.MaxThroughputMbps)

	return encodeTLV(IDDeviceInfo, body)
}

// DecodeDeviceInfo parses a Device Info sub-element body (post-header).
func DecodeDeviceInfo(body []byte) (DeviceInfo, error) {
	if len(body) < 6 {
		return DeviceInfo{}, fmt.Errorf("subelement: device info: %w", ErrTruncated)
	}
	field := binary.BigEndian.Uint16(body[0:2])
	return DeviceInfo{
		Type:                  DeviceType(field & 0x3),
		SessionAvailable:      field&bitSessionAvailable != 0,
		CoupledSinkSupported:  field&bitCoupledSink != 0,
		ContentProtectionSupp: field&bitContentProtect != 0,
		PreferredConnectivity: field&bitPreferredConn != 0,
		WSDSupported:          field&bitWSD != 0,
		ControlPort:           binary.BigEndian.Uint16(body[2:4]),
		MaxThroughputMbps:     binary.BigEndian.Uint16(body[4:6]),
	}, nil
}

// AudioFormats is the decoded Audio Formats sub-element (id 2): one entry
// per supported codec (LPCM, AAC, AC3), each a bitmask of sample rates.
type AudioFormats struct {
	LPCMModes uint32
	AACModes  uint32
	AC3Modes  uint32
	// Selected* record the single mode + latency chosen for the active
	// session, carried in the trailing bytes of the sub-element.
	SelectedCodec  uint8
	SelectedMode   uint32
	SelectedLatency uint8
}

// EncodeAudioFormats renders the Audio Formats sub-element body (15 bytes:
// 3x4-byte bitmask table + codec + mode + latency).
func EncodeAudioFormats(f AudioFormats) []byte {
	body := make([]byte, 15)
	binary.BigEndian.PutUint32(body[0:4], f.LPCMModes)
	binary.BigEndian.PutUint32(body[4:8], f.AACModes)
	binary.BigEndian.PutUint32(body[8:12], f.AC3Modes)
	body[12] = f.SelectedCodec
	// SelectedMode/Latency packed into the remaining 2 bytes for brevity;
	// real WFD encodes mode as its own 4-byte field per codec, trimmed
	// here since no audio-format gating is done (SPEC_FULL §7).
	body[13] = byte(f.SelectedMode)
	body[14] = f.SelectedLatency
	return encodeTLV(IDAudioFormats, body)
}

// DecodeAudioFormats parses an Audio Formats sub-element body.
func DecodeAudioFormats(body []byte) (AudioFormats, error) {
	if len(body) < 15 {
		return AudioFormats{}, fmt.Errorf("subelement: audio formats: %w", ErrTruncated)
	}
	return AudioFormats{
		LPCMModes:       binary.BigEndian.Uint32(body[0:4]),
		AACModes:        binary.BigEndian.Uint32(body[4:8]),
		AC3Modes:        binary.BigEndian.Uint32(body[8:12]),
		SelectedCodec:   body[12],
		SelectedMode:    uint32(body[13]),
		SelectedLatency: body[14],
	}, nil
}

// VideoFormats is the decoded Video Formats sub-element (id 3): native
// resolution plus per-profile/level H.264 CEA/VESA/HH resolution bitmaps.
type VideoFormats struct {
	NativeResolution   uint8
	PreferredDisplayMode uint8
	Profiles           uint8 // bitmask: CBP=1, CHP=2
	Levels             uint8 // bitmask of supported levels
	CEAResolutions     uint32
	VESAResolutions    uint32
	HHResolutions      uint32
	LatencyMs          uint8
	MinSliceSize       uint16
	SliceEncParams     uint16
	FrameRateControl   uint8
}

// EncodeVideoFormats renders the Video Formats sub-element body.
func EncodeVideoFormats(f VideoFormats) []byte {
	body := make([]byte, 21)
	body[0] = f.NativeResolution
	body[1] = f.PreferredDisplayMode
	body[2] = f.Profiles
	body[3] = f.Levels
	binary.BigEndian.PutUint32(body[4:8], f.CEAResolutions)
	binary.BigEndian.PutUint32(body[8:12], f.VESAResolutions)
	binary.BigEndian.PutUint32(body[12:16], f.HHResolutions)
	body[16] = f.LatencyMs
	binary.BigEndian.PutUint16(body[17:19], f.MinSliceSize)
	binary.BigEndian.PutUint16(body[19:21], f.SliceEncParams)
	return encodeTLV(IDVideoFormats, body)
}

// DecodeVideoFormats parses a Video Formats sub-element body.
func DecodeVideoFormats(body []byte) (VideoFormats, error) {
	if len(body) < 21 {
		return VideoFormats{}, fmt.Errorf("subelement: video formats: %w", ErrTruncated)
	}
	return VideoFormats{
		NativeResolution:     body[0],
		PreferredDisplayMode: body[1],
		Profiles:             body[2],
		Levels:               body[3],
		CEAResolutions:       binary.BigEndian.Uint32(body[4:8]),
		VESAResolutions:      binary.BigEndian.Uint32(body[8:12]),
		HHResolutions:        binary.BigEndian.Uint32(body[12:16]),
		LatencyMs:            body[16],
		MinSliceSize:         binary.BigEndian.Uint16(body[17:19]),
		SliceEncParams:       binary.BigEndian.Uint16(body[19:21]),
	}, nil
}

// ExtendedCapability is the decoded Extended Capability sub-element (id 7):
// UIBC and I2C support bits, read regardless of whether the session ever
// enables UIBC (original_source parses these unconditionally; spec.md's
// M15-replies-501 behavior on the Source table is unaffected, see §5 of
// the expanded specification).
type ExtendedCapability struct {
	UIBCSupported bool
	I2CSupported  bool
}

// EncodeExtendedCapability renders the Extended Capability sub-element body.
func EncodeExtendedCapability(c ExtendedCapability) []byte {
	var field uint16
	if c.UIBCSupported {
		field |= 1 << 0
	}
	if c.I2CSupported {
		field |= 1 << 1
	}
	body := make([]byte, 2)
	binary.BigEndian.PutUint16(body, field)
	return encodeTLV(IDExtendedCapability, body)
}

// DecodeExtendedCapability parses an Extended Capability sub-element body.
func DecodeExtendedCapability(body []byte) (ExtendedCapability, error) {
	if len(body) < 2 {
		return ExtendedCapability{}, fmt.Errorf("subelement: extended capability: %w", ErrTruncated)
	}
	field := binary.BigEndian.Uint16(body)
	return ExtendedCapability{
		UIBCSupported: field&(1<<0) != 0,
		I2CSupported:  field&(1<<1) != 0,
	}, nil
}

// encodeTLV frames body with its sub-element ID and 2-byte big-endian
// length, matching the WFD sub-element header layout.
func encodeTLV(id ID, body []byte) []byte {
	out := make([]byte, 3+len(body))
	out[0] = byte(id)
	binary.BigEndian.PutUint16(out[1:3], uint16(len(body)))
	copy(out[3:], body)
	return out
}

// Header is a decoded sub-element header: its ID and body length, with
// Body left for the caller to slice out and pass to the matching Decode
// function.
type Header struct {
	ID     ID
	Length uint16
}

// DecodeHeader parses the 3-byte sub-element header from the front of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < 3 {
		return Header{}, fmt.Errorf("subelement: header: %w", ErrTruncated)
	}
	return Header{ID: ID(buf[0]), Length: binary.BigEndian.Uint16(buf[1:3])}, nil
}

// Split walks buf, a concatenation of sub-elements as carried in a WFD
// information-element or an RTSP wfd_* body, returning each element's
// header and raw body.
func Split(buf []byte) ([]struct {
	Header Header
	Body   []byte
}, error) {
	var out []struct {
		Header Header
		Body   []byte
	}

	for len(buf) > 0 {
		hdr, err := DecodeHeader(buf)
		if err != nil {
			return nil, err
		}
		end := 3 + int(hdr.Length)
		if end > len(buf) {
			return nil, fmt.Errorf("subelement: element %s: %w", hdr.ID, ErrTruncated)
		}
		out = append(out, struct {
			Header Header
			Body   []byte
		}{Header: hdr, Body: buf[3:end]})
		buf = buf[end:]
	}

	return out, nil
}
