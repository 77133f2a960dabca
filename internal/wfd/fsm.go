package wfd

// This file implements the Miracast session FSM as a pure function over a
// transition table, mirroring the BFD FSM pattern (internal/bfd/fsm.go in
// the teacher repo): no I/O, no Session dependency, trivially testable
// against the M1-M16 tables in the Wi-Fi Display specification.
//
// Source-role state diagram (sink-initiated messages in parentheses):
//
//   Null --(TCP connect)--> Connecting --M1--> CapsExchanging
//   CapsExchanging --(M3,M4 round trip)--> Established
//   Established --M5(SETUP)--> SettingUp --(M6)--> SettingUp
//   SettingUp --M7--> Playing
//   Playing --M9--> Paused --M7--> Playing
//   any state --M8--> TearingDown
//
// No transition in this table leads from TearingDown to Terminating.

import "errors"

// ErrInvalidTransition indicates the event is not valid in the current
// state for the given role, mapped onto a 455 Method Not Valid In This
// State reply at the RTSP layer.
var ErrInvalidTransition = errors.New("wfd: invalid transition")

// EventKind distinguishes the sources of Session events.
type EventKind uint8

const (
	// EventRecvRequest is an inbound RTSP request classified to a MessageID.
	EventRecvRequest EventKind = iota
	// EventRecvReply is an inbound RTSP reply to a previously sent request.
	EventRecvReply
	// EventLocalConnect starts the session once the RTSP connection opens.
	EventLocalConnect
	// EventLocalTeardown is a local request to tear down the session.
	EventLocalTeardown
	// EventKeepaliveTimeout fires when KeepaliveInterval passes with no
	// other session event; a Source answers it by sending M16.
	EventKeepaliveTimeout
	// EventEncoderFailed fires when the encoder child reports a failure.
	EventEncoderFailed
)

// Event is a single FSM input.
type Event struct {
	Kind    EventKind
	Message MessageID
}

// Result is the outcome of a transition: the new state and the ordered
// actions the Session event loop must execute.
type Result struct {
	State   State
	Actions []Action
}

// Transition computes the next state and actions for ev given the
// session's role and current state. It is a pure function: identical
// inputs always produce identical outputs.
func Transition(role Role, state State, ev Event) (Result, error) {
	if ev.Kind == EventLocalTeardown && state != StateTerminating {
		return Result{State: StateTearingDown, Actions: []Action{ActionSendTriggerTeardown}}, nil
	}
	if ev.Kind == EventEncoderFailed {
		return Result{State: StateTearingDown, Actions: []Action{ActionStopEncoder, ActionSendTriggerTeardown}}, nil
	}

	if role == RoleSink {
		return sinkTransition(state, ev)
	}
	return sourceTransition(state, ev)
}

// sourceTransition implements the Source-role dispatch table: the source
// drives capability negotiation and triggers, and answers the sink's
// SETUP/PLAY/PAUSE/TEARDOWN requests.
func sourceTransition(state State, ev Event) (Result, error) {
	switch {
	case ev.Kind == EventLocalConnect && state == StateNull:
		return Result{State: StateConnecting, Actions: []Action{ActionSendM1}}, nil

	// The Source's own M1 reply carries the sink's Public method list and
	// is what actually initiates M3 (scenario 2: M1 reply -> M3, with no
	// M2 in between). An incoming M2 is optional and, if the sink sends
	// one, is answered 200 without re-triggering M3.
	case ev.Kind == EventRecvReply && ev.Message == M1RequestSinkOptions && state == StateConnecting:
		return Result{State: StateCapsExchanging, Actions: []Action{ActionSendM3}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M2RequestSrcOptions && stateIn(state, StateConnecting, StateCapsExchanging):
		return Result{State: state, Actions: []Action{ActionReplyOK}}, nil

	case ev.Kind == EventRecvReply && ev.Message == M3GetParameter && state == StateCapsExchanging:
		return Result{State: StateCapsExchanging, Actions: []Action{ActionSendM4}}, nil

	case ev.Kind == EventRecvReply && ev.Message == M4SetParameter && state == StateCapsExchanging:
		return Result{State: StateEstablished, Actions: []Action{ActionNotifyEstablished, ActionSendTriggerSetup}}, nil

	case ev.Kind == EventRecvReply && ev.Message == M5Trigger && state == StateEstablished:
		return Result{State: StateSettingUp, Actions: nil}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M6Setup && state == StateSettingUp:
		return Result{State: StateSettingUp, Actions: []Action{ActionReplySetup}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M7Play && stateIn(state, StateSettingUp, StatePaused):
		return Result{State: StatePlaying, Actions: []Action{ActionReplyOK, ActionStartEncoder}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M9Pause && state == StatePlaying:
		return Result{State: StatePaused, Actions: []Action{ActionReplyOK, ActionPauseEncoder}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M8Teardown:
		return Result{State: StateTearingDown, Actions: []Action{ActionReplyOK, ActionStopEncoder}}, nil

	case ev.Kind == EventRecvReply && ev.Message == M16Keepalive:
		return Result{State: state, Actions: nil}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M13RequestIDR:
		return Result{State: state, Actions: []Action{ActionReplyOK}}, nil

	// M10-M12 are not acted on, per spec.md's Source table (they reply 501
	// Not Implemented); the M10/M11 values are stored read-only on the
	// Session by the caller before this function is called (see §5 of the
	// expanded specification). M12 values are not stored.
	case ev.Kind == EventRecvRequest && messageIn(ev.Message, M10SetRoute, M11SetConnectorType, M12SetStandby):
		return Result{State: state, Actions: []Action{ActionReplyNotImplemented}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M15EnableUIBC:
		return Result{State: state, Actions: []Action{ActionReplyNotImplemented}}, nil

	// A Source sends M16 itself (spec.md §4.4); the keepalive window
	// elapsing just means it's time to send the next one, in any state
	// where a session is actually up and talking.
	case ev.Kind == EventKeepaliveTimeout && stateIn(state, StateEstablished, StateSettingUp, StatePlaying, StatePaused):
		return Result{State: state, Actions: []Action{ActionSendKeepalive}}, nil

	case ev.Kind == EventKeepaliveTimeout:
		return Result{State: state, Actions: nil}, nil

	default:
		if ev.Kind == EventRecvRequest {
			return Result{State: state, Actions: []Action{ActionReplyMethodNotValid}}, ErrInvalidTransition
		}
		return Result{}, ErrInvalidTransition
	}
}

// sinkTransition implements the Sink-role dispatch table: the sink
// answers the source's M1/M3/M4 and moves through SettingUp/Playing/Paused
// on M5 triggers, sending no SETUP/PLAY request of its own (spec.md's
// data model allows direction to be Sink even though the worked examples
// are all Source-side).
func sinkTransition(state State, ev Event) (Result, error) {
	switch {
	case ev.Kind == EventLocalConnect && state == StateNull:
		return Result{State: StateConnecting, Actions: []Action{ActionSendM2}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M1RequestSinkOptions && stateIn(state, StateConnecting):
		return Result{State: StateCapsExchanging, Actions: []Action{ActionReplyOK}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M3GetParameter && state == StateCapsExchanging:
		return Result{State: StateCapsExchanging, Actions: []Action{ActionReplyOK}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M4SetParameter && state == StateCapsExchanging:
		return Result{State: StateEstablished, Actions: []Action{ActionReplyOK, ActionNotifyEstablished}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M5Trigger && state == StateEstablished:
		return Result{State: StateSettingUp, Actions: []Action{ActionReplyOK}}, nil

	case ev.Kind == EventRecvReply && ev.Message == M6Setup && state == StateSettingUp:
		return Result{State: StateSettingUp, Actions: nil}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M5Trigger && stateIn(state, StateSettingUp, StatePaused):
		return Result{State: StatePlaying, Actions: []Action{ActionReplyOK, ActionStartEncoder, ActionArmKeepalive}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M5Trigger && state == StatePlaying:
		return Result{State: StatePaused, Actions: []Action{ActionReplyOK, ActionPauseEncoder}}, nil

	case ev.Kind == EventRecvRequest && ev.Message == M8Teardown:
		return Result{State: StateTearingDown, Actions: []Action{ActionReplyOK, ActionStopEncoder}}, nil

	// M16 is Source-only (spec.md §4.4): a Sink only ever answers it.
	case ev.Kind == EventRecvRequest && ev.Message == M16Keepalive:
		return Result{State: state, Actions: []Action{ActionReplyOK}}, nil

	case ev.Kind == EventKeepaliveTimeout:
		return Result{State: state, Actions: nil}, nil

	default:
		if ev.Kind == EventRecvRequest {
			return Result{State: state, Actions: []Action{ActionReplyMethodNotValid}}, ErrInvalidTransition
		}
		return Result{}, ErrInvalidTransition
	}
}

func stateIn(state State, options ...State) bool {
	for _, s := range options {
		if state == s {
			return true
		}
	}
	return false
}

func messageIn(id MessageID, options ...MessageID) bool {
	for _, o := range options {
		if id == o {
			return true
		}
	}
	return false
}
