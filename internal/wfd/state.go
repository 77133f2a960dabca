package wfd

import "fmt"

// Role identifies which side of a Miracast session this Session implements.
// Sinks and sources both speak the same sixteen messages but answer
// different subsets of them (spec.md's data model allows direction to be
// either, even though the worked examples are all Source-side).
type Role uint8

const (
	RoleSource Role = iota
	RoleSink
)

// String returns the human-readable name of the role.
func (r Role) String() string {
	switch r {
	case RoleSource:
		return "Source"
	case RoleSink:
		return "Sink"
	default:
		return fmt.Sprintf(unknownFmt, uint8(r))
	}
}

// State is a Miracast session's lifecycle state.
type State uint8

const (
	// StateNull is the initial state before any RTSP exchange has begun.
	StateNull State = iota
	// StateConnecting is entered once the RTSP TCP connection is open but
	// before capability negotiation (M1-M3) completes.
	StateConnecting
	// StateCapsExchanging covers the M1-M4 capability request/response
	// round trips.
	StateCapsExchanging
	// StateEstablished is reached once M4 (SET_PARAMETER with the full
	// negotiated parameter set) has been acknowledged; the session is
	// idle, waiting for M5 (TRIGGER) or M6 (SETUP).
	StateEstablished
	// StateSettingUp covers the M6 SETUP round trip that allocates RTP
	// ports and a session id.
	StateSettingUp
	// StatePlaying is entered after a successful M7 PLAY.
	StatePlaying
	// StatePaused is entered after a successful M9 PAUSE; PLAY returns to
	// StatePlaying from here.
	StatePaused
	// StateTearingDown covers the M8 TEARDOWN round trip.
	StateTearingDown
	// StateTerminating is the terminal state: the RTSP connection is being
	// closed and the Session will be unreferenced.
	StateTerminating
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateNull:
		return "Null"
	case StateConnecting:
		return "Connecting"
	case StateCapsExchanging:
		return "CapsExchanging"
	case StateEstablished:
		return "Established"
	case StateSettingUp:
		return "SettingUp"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateTearingDown:
		return "TearingDown"
	case StateTerminating:
		return "Terminating"
	default:
		return fmt.Sprintf(unknownFmt, uint8(s))
	}
}

// Action represents a side-effect the Session event loop executes after a
// transition. The transition table itself is a pure function; actions are
// returned as data and executed by the caller, exactly as the teacher's
// BFD FSM separates transition logic from I/O (internal/bfd/fsm.go).
type Action uint8

const (
	// ActionReplyOK triggers an immediate 200 OK reply to the triggering request.
	ActionReplyOK Action = iota + 1
	// ActionReplyNotImplemented triggers a 501 Not Implemented reply.
	ActionReplyNotImplemented
	// ActionReplyMethodNotValid triggers a 455 Method Not Valid in This State reply.
	ActionReplyMethodNotValid
	// ActionSendM1 triggers an outbound M1 OPTIONS * request (Source role
	// only), with Require: org.wfa.wfd1.0.
	ActionSendM1
	// ActionSendM2 triggers an outbound M2 OPTIONS request (Sink role only).
	ActionSendM2
	// ActionSendM3 triggers an outbound M3 GET_PARAMETER request asking for
	// wfd_video_formats/wfd_audio_codecs/wfd_client_rtp_ports.
	ActionSendM3
	// ActionSendM4 triggers an outbound M4 SET_PARAMETER request with the
	// negotiated capability set.
	ActionSendM4
	// ActionSendTriggerSetup triggers an M5 SET_PARAMETER(wfd_trigger_method: SETUP).
	ActionSendTriggerSetup
	// ActionSendTriggerPlay triggers an M5 SET_PARAMETER(wfd_trigger_method: PLAY).
	ActionSendTriggerPlay
	// ActionSendTriggerPause triggers an M5 SET_PARAMETER(wfd_trigger_method: PAUSE).
	ActionSendTriggerPause
	// ActionSendTriggerTeardown triggers an M5 SET_PARAMETER(wfd_trigger_method: TEARDOWN).
	ActionSendTriggerTeardown
	// ActionReplySetup triggers a 200 OK reply to M6 SETUP carrying
	// Session: <id-hex>;timeout=30 and Transport: ...;server_port=16384-16385
	// headers, and configures the encoder with the negotiated parameters.
	ActionReplySetup
	// ActionSendKeepalive triggers an outbound M16 GET_PARAMETER request
	// (Source role only) with only a Session header and no body.
	ActionSendKeepalive
	// ActionStartEncoder starts the encoder child once SETUP completes.
	ActionStartEncoder
	// ActionPauseEncoder pauses the encoder child.
	ActionPauseEncoder
	// ActionStopEncoder stops the encoder child and tears down RTP state.
	ActionStopEncoder
	// ActionArmKeepalive (re)starts the M16 keepalive timer (25s, spec.md §4.4).
	ActionArmKeepalive
	// ActionNotifyEstablished signals session consumers of the Established transition.
	ActionNotifyEstablished
	// ActionNotifyTerminated signals session consumers of termination.
	ActionNotifyTerminated
	// ActionCloseBus closes the underlying RTSP Bus.
	ActionCloseBus
)
