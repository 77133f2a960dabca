package wfd

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/miraclecast/miraclecast/internal/encoder"
	"github.com/miraclecast/miraclecast/internal/rtsp"
)

// fakeEncoder records Configure/Start/Pause/Stop calls for assertions,
// standing in for the D-Bus-backed supervisor in internal/encoder.
type fakeEncoder struct {
	mu         sync.Mutex
	configured *encoder.Params
	started    bool
}

func (f *fakeEncoder) Configure(_ context.Context, p encoder.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.configured = &cp
	return nil
}
func (f *fakeEncoder) Start(context.Context) error { f.mu.Lock(); defer f.mu.Unlock(); f.started = true; return nil }
func (f *fakeEncoder) Pause(context.Context) error { return nil }
func (f *fakeEncoder) Stop(context.Context) error  { return nil }

func (f *fakeEncoder) configuredParams() *encoder.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

// newTestSession wires a Session to one end of a net.Pipe, returning the
// Session and a raw Decoder on the other end to observe what hits the wire.
func newTestSession(t *testing.T, enc EncoderController) (*Session, net.Conn, *rtsp.Decoder) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })

	bus := rtsp.NewBus(a, nil)
	t.Cleanup(func() { bus.Close() })

	sess := NewSession("test-session", RoleSource, bus, enc, nil, "192.0.2.1:7236")
	return sess, b, rtsp.NewDecoder(b)
}

// TestSessionSendsM1OnLocalConnect drives a real Session through Run and
// asserts the very first thing on the wire is M1: an OPTIONS * request
// carrying Require: org.wfa.wfd1.0.
func TestSessionSendsM1OnLocalConnect(t *testing.T) {
	sess, peer, dec := newTestSession(t, nil)
	defer peer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sess.Run(ctx)

	m, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if m.Type() != rtsp.TypeRequest || m.Method() != "OPTIONS" || m.URI() != "*" {
		t.Fatalf("got %v %s %s, want request OPTIONS *", m.Type(), m.Method(), m.URI())
	}
	if require, ok := m.Header("Require"); !ok || require != "org.wfa.wfd1.0" {
		t.Fatalf("Require header = %q, %v, want org.wfa.wfd1.0", require, ok)
	}
}

// TestExecuteSendKeepaliveEmitsBodylessGetParameter verifies the M16 wire
// shape directly: no body, only a Session header carrying the numeric id.
func TestExecuteSendKeepaliveEmitsBodylessGetParameter(t *testing.T) {
	sess, peer, dec := newTestSession(t, nil)
	defer peer.Close()

	go sess.execute(ActionSendKeepalive)

	m, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if m.Method() != "GET_PARAMETER" {
		t.Fatalf("Method() = %q, want GET_PARAMETER", m.Method())
	}
	if len(m.Body()) != 0 {
		t.Fatalf("Body() = %q, want empty", m.Body())
	}
	want := fmt.Sprintf("%X", sess.numericID)
	if got, ok := m.Header("Session"); !ok || got != want {
		t.Fatalf("Session header = %q, %v, want %q", got, ok, want)
	}
}

// TestExecuteReplySetupSendsSessionAndTransport drives ActionReplySetup
// directly against a synthetic M6 SETUP request and checks both the reply's
// Session/Transport headers and that the encoder is configured with the
// negotiated RTP/RTCP ports.
func TestExecuteReplySetupSendsSessionAndTransport(t *testing.T) {
	enc := &fakeEncoder{}
	sess, peer, dec := newTestSession(t, enc)
	defer peer.Close()

	req := rtsp.NewRequest("SETUP", "rtsp://localhost/wfd1.0/streamid=0")
	req.SetHeader("CSeq", "9")
	req.SetHeader("Transport", "RTP/AVP/UDP;unicast;client_port=19000-19001")
	sess.pending = req

	go sess.execute(ActionReplySetup)

	m, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if m.Type() != rtsp.TypeReply || m.Code() != rtsp.StatusOK {
		t.Fatalf("got %v %d, want 200 OK reply", m.Type(), m.Code())
	}

	wantSession := fmt.Sprintf("%X;timeout=%d", sess.numericID, SessionTimeoutSeconds)
	if got, ok := m.Header("Session"); !ok || got != wantSession {
		t.Fatalf("Session header = %q, %v, want %q", got, ok, wantSession)
	}

	wantTransport := fmt.Sprintf("RTP/AVP/UDP;unicast;client_port=19000-19001;server_port=%d-%d", localRTPPort, localRTCPPort)
	if got, ok := m.Header("Transport"); !ok || got != wantTransport {
		t.Fatalf("Transport header = %q, %v, want %q", got, ok, wantTransport)
	}

	params := enc.configuredParams()
	if params == nil {
		t.Fatal("encoder Configure was never called")
	}
	if params.RTPPort != 19000 || params.RTCPPort != 19001 {
		t.Fatalf("Configure ports = %d/%d, want 19000/19001", params.RTPPort, params.RTCPPort)
	}
}

// TestExecuteReplySetupRejectsUnsupportedTransport checks the 461 path when
// the SETUP request's Transport header doesn't parse.
func TestExecuteReplySetupRejectsUnsupportedTransport(t *testing.T) {
	sess, peer, dec := newTestSession(t, nil)
	defer peer.Close()

	req := rtsp.NewRequest("SETUP", "rtsp://localhost/wfd1.0/streamid=0")
	req.SetHeader("CSeq", "9")
	req.SetHeader("Transport", "RTP/AVP/TCP;interleaved=0-1")
	sess.pending = req

	go sess.execute(ActionReplySetup)

	m, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if m.Code() != rtsp.StatusUnsupportedTransport {
		t.Fatalf("Code() = %d, want %d", m.Code(), rtsp.StatusUnsupportedTransport)
	}
}
