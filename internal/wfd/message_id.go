package wfd

import "fmt"

// unknownFmt is the format string for unrecognized enum values with numeric code.
const unknownFmt = "Unknown(%d)"

// MessageID classifies an RTSP request or reply into one of the sixteen
// Miracast session-negotiation messages (Wi-Fi Display Technical
// Specification Section 7; named after original_source's
// RTSP_M1_REQUEST_SINK_OPTIONS .. RTSP_M16_KEEPALIVE constants).
type MessageID uint8

const (
	MessageUnknown MessageID = iota

	// M1: source queries the sink's RTSP capabilities (OPTIONS), outgoing
	// from the Source and requiring Require: org.wfa.wfd1.0.
	M1RequestSinkOptions
	// M2: sink queries the source's RTSP capabilities (OPTIONS), incoming
	// to the Source; optional, and does not gate M3 (see fsm.go).
	M2RequestSrcOptions
	// M3: source reads negotiable parameters from the sink (GET_PARAMETER).
	M3GetParameter
	// M4: source writes negotiated parameters to the sink (SET_PARAMETER).
	M4SetParameter
	// M5: source triggers a sink-side action (SETUP/PLAY/PAUSE/TEARDOWN) via
	// a wfd_trigger_method body on SET_PARAMETER.
	M5Trigger
	// M6: sink sets up the RTP session (SETUP).
	M6Setup
	// M7: sink starts streaming (PLAY).
	M7Play
	// M8: either side tears down the session (TEARDOWN).
	M8Teardown
	// M9: sink pauses streaming (PAUSE).
	M9Pause
	// M10: sink sets the output route (SET_PARAMETER, wfd_route), incoming
	// to the Source.
	M10SetRoute
	// M11: sink sets the connector type (SET_PARAMETER, wfd_connector_type),
	// incoming to the Source.
	M11SetConnectorType
	// M12: sink sets standby (SET_PARAMETER, wfd_standby), incoming to the
	// Source.
	M12SetStandby
	// M13: sink requests an IDR frame (SET_PARAMETER, wfd_idr_request),
	// incoming to the Source.
	M13RequestIDR
	// M14: either side establishes the UIBC channel (SET_PARAMETER, wfd_uibc_capability).
	M14EstablishUIBC
	// M15: either side enables/disables UIBC (SET_PARAMETER, wfd_uibc_setting).
	M15EnableUIBC
	// M16: source sends a keepalive GET_PARAMETER with an empty body and a
	// Session header, re-armed every KeepaliveInterval.
	M16Keepalive

	messageCount
)

// String returns the human-readable name of the message id.
func (id MessageID) String() string {
	switch id {
	case M1RequestSinkOptions:
		return "M1RequestSinkOptions"
	case M2RequestSrcOptions:
		return "M2RequestSrcOptions"
	case M3GetParameter:
		return "M3GetParameter"
	case M4SetParameter:
		return "M4SetParameter"
	case M5Trigger:
		return "M5Trigger"
	case M6Setup:
		return "M6Setup"
	case M7Play:
		return "M7Play"
	case M8Teardown:
		return "M8Teardown"
	case M9Pause:
		return "M9Pause"
	case M10SetRoute:
		return "M10SetRoute"
	case M11SetConnectorType:
		return "M11SetConnectorType"
	case M12SetStandby:
		return "M12SetStandby"
	case M13RequestIDR:
		return "M13RequestIDR"
	case M14EstablishUIBC:
		return "M14EstablishUIBC"
	case M15EnableUIBC:
		return "M15EnableUIBC"
	case M16Keepalive:
		return "M16Keepalive"
	default:
		return fmt.Sprintf(unknownFmt, uint8(id))
	}
}

// wfdParameter names the SET_PARAMETER body key used to disambiguate
// M10-M15, all of which share the SET_PARAMETER method.
type wfdParameter string

const (
	paramTrigger       wfdParameter = "wfd_trigger_method"
	paramRoute         wfdParameter = "wfd_route"
	paramConnectorType wfdParameter = "wfd_connector_type"
	paramStandby       wfdParameter = "wfd_standby"
	paramIDRRequest    wfdParameter = "wfd_idr_request"
	paramUIBCCapability wfdParameter = "wfd_uibc_capability"
	paramUIBCSetting   wfdParameter = "wfd_uibc_setting"

	// M3/M4 capability-negotiation parameters (original_source's
	// wfd_out_session_request_get_parameter/request_set_parameter).
	paramVideoFormats    wfdParameter = "wfd_video_formats"
	paramAudioCodecs     wfdParameter = "wfd_audio_codecs"
	paramClientRTPPorts  wfdParameter = "wfd_client_rtp_ports"
	paramPresentationURL wfdParameter = "wfd_presentation_URL"
)
