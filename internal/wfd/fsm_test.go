package wfd

import "testing"

func TestSourceTransitionHappyPath(t *testing.T) {
	state := StateNull

	steps := []struct {
		ev    Event
		want  State
	}{
		{Event{Kind: EventLocalConnect}, StateConnecting},
		{Event{Kind: EventRecvReply, Message: M1RequestSinkOptions}, StateCapsExchanging},
		{Event{Kind: EventRecvReply, Message: M3GetParameter}, StateCapsExchanging},
		{Event{Kind: EventRecvReply, Message: M4SetParameter}, StateEstablished},
		{Event{Kind: EventRecvReply, Message: M5Trigger}, StateSettingUp},
		{Event{Kind: EventRecvRequest, Message: M6Setup}, StateSettingUp},
		{Event{Kind: EventRecvRequest, Message: M7Play}, StatePlaying},
		{Event{Kind: EventRecvRequest, Message: M9Pause}, StatePaused},
		{Event{Kind: EventRecvRequest, Message: M7Play}, StatePlaying},
		{Event{Kind: EventRecvRequest, Message: M8Teardown}, StateTearingDown},
	}

	for i, step := range steps {
		result, err := Transition(RoleSource, state, step.ev)
		if err != nil {
			t.Fatalf("step %d: Transition() error = %v", i, err)
		}
		if result.State != step.want {
			t.Fatalf("step %d: state = %v, want %v", i, result.State, step.want)
		}
		state = result.State
	}
}

func TestSourceLocalConnectSendsM1(t *testing.T) {
	result, err := Transition(RoleSource, StateNull, Event{Kind: EventLocalConnect})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if result.State != StateConnecting {
		t.Fatalf("state = %v, want Connecting", result.State)
	}
	if len(result.Actions) != 1 || result.Actions[0] != ActionSendM1 {
		t.Fatalf("actions = %v, want [ActionSendM1]", result.Actions)
	}
}

func TestSourceTableM10ThroughM12AndM15ReadOnly(t *testing.T) {
	for _, id := range []MessageID{M10SetRoute, M11SetConnectorType, M12SetStandby, M15EnableUIBC} {
		result, err := Transition(RoleSource, StateEstablished, Event{Kind: EventRecvRequest, Message: id})
		if err != nil {
			t.Fatalf("message %v: unexpected error %v", id, err)
		}
		if result.State != StateEstablished {
			t.Fatalf("message %v: state changed to %v, want unchanged", id, result.State)
		}
		if len(result.Actions) != 1 || result.Actions[0] != ActionReplyNotImplemented {
			t.Fatalf("message %v: actions = %v, want [ActionReplyNotImplemented]", id, result.Actions)
		}
	}
}

func TestSourceM13RequestIDRReplies200(t *testing.T) {
	result, err := Transition(RoleSource, StateEstablished, Event{Kind: EventRecvRequest, Message: M13RequestIDR})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if result.State != StateEstablished {
		t.Fatalf("state changed to %v, want unchanged", result.State)
	}
	if len(result.Actions) != 1 || result.Actions[0] != ActionReplyOK {
		t.Fatalf("actions = %v, want [ActionReplyOK]", result.Actions)
	}
}

func TestSourceTransitionInvalid(t *testing.T) {
	_, err := Transition(RoleSource, StateNull, Event{Kind: EventRecvRequest, Message: M7Play})
	if err == nil {
		t.Fatal("expected ErrInvalidTransition")
	}
}

func TestKeepaliveTimeoutSendsM16(t *testing.T) {
	result, err := Transition(RoleSource, StatePlaying, Event{Kind: EventKeepaliveTimeout})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if result.State != StatePlaying {
		t.Fatalf("state = %v, want unchanged Playing", result.State)
	}
	if len(result.Actions) != 1 || result.Actions[0] != ActionSendKeepalive {
		t.Fatalf("actions = %v, want [ActionSendKeepalive]", result.Actions)
	}
}

func TestKeepaliveReplyDoesNotChangeState(t *testing.T) {
	result, err := Transition(RoleSource, StatePlaying, Event{Kind: EventRecvReply, Message: M16Keepalive})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if result.State != StatePlaying {
		t.Fatalf("state = %v, want unchanged Playing", result.State)
	}
}

func TestLocalTeardownFromAnyState(t *testing.T) {
	for _, s := range []State{StateConnecting, StateEstablished, StatePlaying, StatePaused} {
		result, err := Transition(RoleSource, s, Event{Kind: EventLocalTeardown})
		if err != nil {
			t.Fatalf("state %v: Transition() error = %v", s, err)
		}
		if result.State != StateTearingDown {
			t.Fatalf("state %v: got %v, want TearingDown", s, result.State)
		}
	}
}

func TestSinkTransitionHappyPath(t *testing.T) {
	result, err := Transition(RoleSink, StateNull, Event{Kind: EventLocalConnect})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if result.State != StateConnecting {
		t.Fatalf("state = %v, want Connecting", result.State)
	}
	if len(result.Actions) != 1 || result.Actions[0] != ActionSendM2 {
		t.Fatalf("actions = %v, want [ActionSendM2]", result.Actions)
	}
}
