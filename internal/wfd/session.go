package wfd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miraclecast/miraclecast/internal/encoder"
	"github.com/miraclecast/miraclecast/internal/rtsp"
)

// KeepaliveInterval is the M16 re-arm window (spec.md §4.4, original_source's
// KEEP_ALIVE_INTERVAL-5): a Source re-sends M16 this often, always shorter
// than SessionTimeoutSeconds so a well-behaved sink never lets the session
// time out.
const KeepaliveInterval = 25 * time.Second

// SessionTimeoutSeconds is the Session header's timeout value advertised in
// the M6 SETUP reply.
const SessionTimeoutSeconds = 30

// Local RTP/RTCP ports the encoder listens on, advertised in the M6 SETUP
// reply's Transport header (original_source's LOCAL_RTP_PORT/LOCAL_RTCP_PORT).
const (
	localRTPPort  = 16384
	localRTCPPort = 16385
)

// errInvalidRTPPorts indicates a wfd_client_rtp_ports value failed the
// P0,P1-not-both-zero or profile/mode validation (original_source's
// wfd_out_session_handle_get_parameter_reply).
var errInvalidRTPPorts = errors.New("wfd: invalid wfd_client_rtp_ports")

// sessionCounter issues the numeric, process-unique RTSP Session id
// (spec.md §3) carried in the Session header, distinct from the UUID used
// for logging/facade identity.
var sessionCounter atomic.Uint64

// UIBCCapability is the Sink-advertised User Input Back Channel capability
// (M14), kept as a data-model completeness addition: original_source
// parses this out of the sub-elements regardless of whether the session
// ever enables UIBC, even though the Source table still replies 501 Not
// Implemented to M15 (see SPEC_FULL.md §5).
type UIBCCapability struct {
	InputCategories uint16
	GenericCategories uint16
	HIDCTypes       uint32
	PortNumber      uint16
}

// EncoderController is the subset of internal/encoder's supervisor a
// Session needs: configure the pipeline once the RTP transport is
// negotiated (M6), then start/pause/stop it as PLAY/PAUSE/TEARDOWN arrive.
type EncoderController interface {
	Configure(ctx context.Context, p encoder.Params) error
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Session drives one Miracast RTSP session to completion: capability
// negotiation, SETUP/PLAY/PAUSE/TEARDOWN, and keepalive supervision. It
// runs a single goroutine event loop reading from the Bus and a local
// command channel, exactly as the teacher's bfd.Session runs one loop per
// BFD session (internal/bfd/session.go), with state exposed via an atomic
// for cheap concurrent reads from facade/metrics code.
//
// All state mutation happens inside Run's select loop. The Bus's reader
// goroutine (handleMessage, invoked via AddMatch) only classifies inbound
// messages and enqueues them on s.commands; it never calls apply/execute
// itself, so a timer-driven transition can never race an inbound-message
// one (internal/bfd/session.go's single-threaded event loop, generalized).
type Session struct {
	id        string
	numericID uint64
	role      Role
	bus       *rtsp.Bus
	enc       EncoderController
	log       *slog.Logger
	localAddr string

	state atomic.Uint32 // State

	// Passthrough fields: parsed from M10/M11 bodies but not acted on by
	// the Source table, stored so a façade consumer can observe them
	// (original_source's wfd-session.c keeps display_mode/connector_type
	// fields even when the session never acts on them).
	connectorType atomic.Value // string
	route         atomic.Value // string
	uibc          atomic.Value // UIBCCapability

	// Negotiated capability state, populated from the M3 reply and echoed
	// in M4 (spec.md §3's Session data model: negotiated video formats,
	// audio codecs, chosen RTP ports).
	videoFormats    atomic.Value // string
	audioCodecs     atomic.Value // string
	clientRTPPort0  atomic.Uint32
	clientRTPPort1  atomic.Uint32
	presentationURL atomic.Value // string

	commands chan localCommand
	done     chan struct{}

	// pending is the request currently being answered, valid only for the
	// duration of a single handleCommand call.
	pending *rtsp.Message

	outboundMu sync.Mutex
	outbound   map[uint64]MessageID
	cseq       atomic.Uint64
}

// localCommand is one event funneled onto s.commands, whether originated
// locally (Teardown, the timer) or by an inbound Bus message. raw is nil
// for locally-originated commands.
type localCommand struct {
	kind EventKind
	msg  MessageID
	raw  *rtsp.Message
}

// NewSession creates a Session bound to bus, in the given role, using enc
// to drive the encoder child once negotiation completes. localAddr is the
// host:port (or host) this session is reachable at, used to build the M4
// wfd_presentation_URL. The caller must call Run to start the event loop.
func NewSession(id string, role Role, bus *rtsp.Bus, enc EncoderController, log *slog.Logger, localAddr string) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		id:        id,
		numericID: sessionCounter.Add(1),
		role:      role,
		bus:       bus,
		enc:       enc,
		log:       log.With(slog.String("session", id), slog.String("role", role.String())),
		localAddr: localAddr,
		commands:  make(chan localCommand, 8),
		done:      make(chan struct{}),
		outbound:  make(map[uint64]MessageID),
	}
	s.state.Store(uint32(StateNull))
	s.connectorType.Store("")
	s.route.Store("")
	s.videoFormats.Store("")
	s.audioCodecs.Store("")
	s.presentationURL.Store("")
	return s
}

// State returns the session's current state. Safe for concurrent use.
func (s *Session) State() State { return State(s.state.Load()) }

// ConnectorType returns the last wfd_connector_type value observed (M11),
// or "" if none has been received.
func (s *Session) ConnectorType() string { return s.connectorType.Load().(string) }

// Route returns the last wfd_route value observed (M10), or "" if none
// has been received.
func (s *Session) Route() string { return s.route.Load().(string) }

// UIBC returns the stored UIBC capability, or the zero value if none has
// been stored. No code path in this package stores one, so it currently
// always returns the zero value.
func (s *Session) UIBC() UIBCCapability {
	if v := s.uibc.Load(); v != nil {
		return v.(UIBCCapability)
	}
	return UIBCCapability{}
}

// VideoFormats returns the sink's negotiated wfd_video_formats value from
// the M3 reply, or "" if capability negotiation hasn't completed.
func (s *Session) VideoFormats() string { return s.videoFormats.Load().(string) }

// AudioCodecs returns the sink's negotiated wfd_audio_codecs value from
// the M3 reply, or "" if capability negotiation hasn't completed.
func (s *Session) AudioCodecs() string { return s.audioCodecs.Load().(string) }

// ClientRTPPorts returns the negotiated wfd_client_rtp_ports pair (P0, P1)
// from the M3 reply.
func (s *Session) ClientRTPPorts() (uint16, uint16) {
	return uint16(s.clientRTPPort0.Load()), uint16(s.clientRTPPort1.Load())
}

// PresentationURL returns the wfd_presentation_URL sent in M4, or "" before
// capability negotiation completes.
func (s *Session) PresentationURL() string { return s.presentationURL.Load().(string) }

// Teardown requests a graceful teardown from outside the event loop.
func (s *Session) Teardown() {
	select {
	case s.commands <- localCommand{kind: EventLocalTeardown}:
	case <-s.done:
	}
}

// Done returns a channel closed once Run returns, whether because the
// Session reached StateTerminating, ctx was cancelled or the Bus closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run drives the event loop until ctx is cancelled or the session
// terminates. It registers itself as a match handler on the Bus for the
// lifetime of the call.
func (s *Session) Run(ctx context.Context) error {
	remove := s.bus.AddMatch(func(_ *rtsp.Bus, m *rtsp.Message) bool {
		s.handleMessage(m)
		return true
	})
	defer remove()
	defer close(s.done)

	s.apply(Event{Kind: EventLocalConnect})

	timer := time.NewTimer(KeepaliveInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-s.commands:
			s.handleCommand(cmd)
			if s.State() == StateTerminating {
				return nil
			}

		case <-timer.C:
			s.apply(Event{Kind: EventKeepaliveTimeout})
			if s.State() == StateTerminating {
				return nil
			}

		case <-s.bus.Done():
			return fmt.Errorf("wfd: session %s: %w", s.id, rtsp.ErrClosed)
		}

		timer.Reset(KeepaliveInterval)
	}
}

// handleMessage is invoked from the Bus's reader goroutine via AddMatch.
// It only classifies the message and enqueues it; all state mutation
// happens later, in handleCommand, under the Run goroutine.
func (s *Session) handleMessage(m *rtsp.Message) {
	switch m.Type() {
	case rtsp.TypeRequest:
		id := Classify(s.role, m)
		s.enqueue(localCommand{kind: EventRecvRequest, msg: id, raw: m})

	case rtsp.TypeReply:
		id, ok := s.takeOutbound(m)
		if !ok {
			return
		}
		s.enqueue(localCommand{kind: EventRecvReply, msg: id, raw: m})
	}
}

func (s *Session) enqueue(cmd localCommand) {
	select {
	case s.commands <- cmd:
	case <-s.done:
	}
}

// handleCommand runs exclusively on the Run goroutine: it is the only
// place that touches s.pending, and the only caller of apply besides
// Run's initial connect call and its keepalive timer case, so apply's
// read-modify-write of s.state is never shared across goroutines.
func (s *Session) handleCommand(cmd localCommand) {
	switch cmd.kind {
	case EventRecvRequest:
		s.storePassthrough(cmd.msg, cmd.raw)
		s.pending = cmd.raw
		s.apply(Event{Kind: EventRecvRequest, Message: cmd.msg})
		s.pending = nil

	case EventRecvReply:
		s.applyReplyContent(cmd.msg, cmd.raw)
		s.apply(Event{Kind: EventRecvReply, Message: cmd.msg})

	default:
		s.apply(Event{Kind: cmd.kind})
	}
}

// applyReplyContent parses the reply bodies/headers the FSM's pure
// Transition function can't see: M1's Public method list and M3's
// negotiated capability set.
func (s *Session) applyReplyContent(id MessageID, m *rtsp.Message) {
	switch id {
	case M1RequestSinkOptions:
		if !verifyPublicMethods(m) {
			s.log.Warn("M1 reply Public header missing required methods")
		}
	case M3GetParameter:
		if err := s.storeM3Reply(m); err != nil {
			s.log.Warn("M3 reply parse failed", slog.Any("error", err))
		}
	}
}

// verifyPublicMethods checks the M1 reply's Public header lists the
// methods a WFD source requires (original_source's
// wfd_out_session_handle_options_reply).
func verifyPublicMethods(m *rtsp.Message) bool {
	public, ok := m.Header("Public")
	if !ok {
		return false
	}
	methods := strings.Split(public, ",")
	for i := range methods {
		methods[i] = strings.TrimSpace(methods[i])
	}
	for _, want := range []string{"org.wfa.wfd1.0", "SET_PARAMETER", "GET_PARAMETER"} {
		if !containsStr(methods, want) {
			return false
		}
	}
	return true
}

func containsStr(haystack []string, want string) bool {
	for _, s := range haystack {
		if s == want {
			return true
		}
	}
	return false
}

// storeM3Reply parses wfd_video_formats/wfd_audio_codecs/wfd_client_rtp_ports
// out of the M3 GET_PARAMETER reply body and records them on the session.
func (s *Session) storeM3Reply(m *rtsp.Message) error {
	params := parseBodyParams(m.Body())

	if v, ok := params[string(paramVideoFormats)]; ok {
		s.videoFormats.Store(v)
	}
	if v, ok := params[string(paramAudioCodecs)]; ok {
		s.audioCodecs.Store(v)
	}
	if v, ok := params[string(paramClientRTPPorts)]; ok {
		p0, p1, err := parseClientRTPPorts(v)
		if err != nil {
			return err
		}
		s.clientRTPPort0.Store(uint32(p0))
		s.clientRTPPort1.Store(uint32(p1))
	}
	return nil
}

// parseClientRTPPorts validates and extracts P0/P1 from a
// "RTP/AVP/UDP;unicast P0 P1 mode=play" value, rejecting the case where
// both ports are zero (original_source's handle_get_parameter_reply).
func parseClientRTPPorts(v string) (p0, p1 uint16, err error) {
	const prefix = "RTP/AVP/UDP;unicast "
	if !strings.HasPrefix(v, prefix) {
		return 0, 0, fmt.Errorf("%w: missing %q prefix", errInvalidRTPPorts, prefix)
	}
	fields := strings.Fields(strings.TrimPrefix(v, prefix))
	if len(fields) != 3 || fields[2] != "mode=play" {
		return 0, 0, fmt.Errorf("%w: malformed fields %q", errInvalidRTPPorts, v)
	}
	a, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errInvalidRTPPorts, err)
	}
	b, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errInvalidRTPPorts, err)
	}
	if a == 0 && b == 0 {
		return 0, 0, fmt.Errorf("%w: P0 and P1 both zero", errInvalidRTPPorts)
	}
	return uint16(a), uint16(b), nil
}

// takeOutbound looks up and clears the MessageID recorded for the request
// this reply answers, keyed by its CSeq cookie.
func (s *Session) takeOutbound(reply *rtsp.Message) (MessageID, bool) {
	cseq, ok := reply.Header("CSeq")
	if !ok {
		return MessageUnknown, false
	}
	var cookie uint64
	if _, err := fmt.Sscanf(cseq, "%d", &cookie); err != nil {
		return MessageUnknown, false
	}

	s.outboundMu.Lock()
	defer s.outboundMu.Unlock()
	id, ok := s.outbound[cookie]
	if ok {
		delete(s.outbound, cookie)
	}
	return id, ok
}

// storePassthrough records M10/M11 body values even when the dispatch
// table itself replies 501, so a façade consumer can still observe them.
// M14 bodies are not recorded.
func (s *Session) storePassthrough(id MessageID, m *rtsp.Message) {
	params := parseBodyParams(m.Body())
	switch id {
	case M10SetRoute:
		s.route.Store(params[string(paramRoute)])
	case M11SetConnectorType:
		s.connectorType.Store(params[string(paramConnectorType)])
	}
}

// apply runs one Transition and executes its actions. It is the only
// place that mutates s.state, and (together with handleCommand) must only
// ever be called from the Run goroutine.
func (s *Session) apply(ev Event) {
	result, err := Transition(s.role, s.State(), ev)
	if err != nil {
		s.log.Debug("wfd transition rejected", slog.String("event", ev.Kind.String()), slog.Any("error", err))
	}

	s.state.Store(uint32(result.State))

	for _, action := range result.Actions {
		s.execute(action)
	}
}

// execute runs a single Action's side effect. Reply actions use s.pending,
// set by handleCommand for the duration of the triggering apply() call.
func (s *Session) execute(action Action) {
	ctx := context.Background()

	switch action {
	case ActionReplyOK:
		s.reply(rtsp.StatusOK, "")
	case ActionReplyNotImplemented:
		s.reply(rtsp.StatusNotImplemented, "")
	case ActionReplyMethodNotValid:
		s.reply(rtsp.StatusMethodNotValidInThisState, "")

	case ActionSendM1:
		m := rtsp.NewRequest("OPTIONS", "*")
		m.SetHeader("Require", "org.wfa.wfd1.0")
		s.sendTracked(m, M1RequestSinkOptions)
	case ActionSendM2:
		s.sendTracked(rtsp.NewRequest("OPTIONS", "*"), M2RequestSrcOptions)
	case ActionSendM3:
		m := rtsp.NewRequest("GET_PARAMETER", "rtsp://localhost/wfd1.0")
		m.SetBody([]byte("wfd_video_formats\r\nwfd_audio_codecs\r\nwfd_client_rtp_ports"))
		s.sendTracked(m, M3GetParameter)
	case ActionSendM4:
		s.sendM4()
	case ActionSendTriggerSetup:
		s.requestWithBody("SET_PARAMETER", "rtsp://localhost/wfd1.0", "wfd_trigger_method: SETUP\r\n")
	case ActionSendTriggerPlay:
		s.requestWithBody("SET_PARAMETER", "rtsp://localhost/wfd1.0", "wfd_trigger_method: PLAY\r\n")
	case ActionSendTriggerPause:
		s.requestWithBody("SET_PARAMETER", "rtsp://localhost/wfd1.0", "wfd_trigger_method: PAUSE\r\n")
	case ActionSendTriggerTeardown:
		s.requestWithBody("SET_PARAMETER", "rtsp://localhost/wfd1.0", "wfd_trigger_method: TEARDOWN\r\n")

	case ActionReplySetup:
		s.replySetup(ctx)
	case ActionSendKeepalive:
		m := rtsp.NewRequest("GET_PARAMETER", "rtsp://localhost/wfd1.0")
		m.SetHeader("Session", fmt.Sprintf("%X", s.numericID))
		s.sendTracked(m, M16Keepalive)

	case ActionStartEncoder:
		if s.enc != nil {
			if err := s.enc.Start(ctx); err != nil {
				s.log.Warn("encoder start failed", slog.Any("error", err))
			}
		}
	case ActionPauseEncoder:
		if s.enc != nil {
			if err := s.enc.Pause(ctx); err != nil {
				s.log.Warn("encoder pause failed", slog.Any("error", err))
			}
		}
	case ActionStopEncoder:
		if s.enc != nil {
			if err := s.enc.Stop(ctx); err != nil {
				s.log.Warn("encoder stop failed", slog.Any("error", err))
			}
		}

	case ActionArmKeepalive:
		// handled by Run's timer.Reset after every select case.

	case ActionNotifyEstablished:
		s.log.Info("session established")

	case ActionNotifyTerminated:
		s.log.Info("session terminated")

	case ActionCloseBus:
		if err := s.bus.Close(); err != nil {
			s.log.Warn("bus close failed", slog.Any("error", err))
		}
	}
}

// sendM4 builds the M4 SET_PARAMETER request: the source's fixed
// video/audio capability strings plus the negotiated RTP ports and
// presentation URL (original_source's wfd_out_session_request_set_parameter).
func (s *Session) sendM4() {
	p0, p1 := s.ClientRTPPorts()
	url := fmt.Sprintf("rtsp://%s/wfd1.0/streamid=0", s.localAddr)
	s.presentationURL.Store(url)

	body := fmt.Sprintf(
		"wfd_video_formats: 00 00 02 10 00000080 00000000 00000000 00 0000 0000 00 none none\r\n"+
			"wfd_audio_codecs: AAC 00000001 00\r\n"+
			"wfd_presentation_URL: %s none\r\n"+
			"wfd_client_rtp_ports: RTP/AVP/UDP;unicast %d %d mode=play",
		url, p0, p1,
	)

	m := rtsp.NewRequest("SET_PARAMETER", "rtsp://localhost/wfd1.0")
	m.SetBody([]byte(body))
	s.sendTracked(m, M4SetParameter)
}

// replySetup answers M6 SETUP with the Session/Transport headers the sink
// needs to start streaming, and configures the encoder with the
// negotiated endpoints once the RTP transport is known
// (original_source's wfd_out_session_handle_setup_request).
func (s *Session) replySetup(ctx context.Context) {
	req := s.pending
	if req == nil {
		return
	}

	clientRTP, clientRTCP, err := parseSetupTransport(req)
	if err != nil {
		s.log.Warn("M6 SETUP Transport header invalid", slog.Any("error", err))
		s.reply(rtsp.StatusUnsupportedTransport, "")
		return
	}

	m, err := rtsp.NewReplyFor(req, rtsp.StatusOK, "")
	if err != nil {
		s.log.Warn("build M6 reply failed", slog.Any("error", err))
		return
	}
	m.SetHeader("Session", fmt.Sprintf("%X;timeout=%d", s.numericID, SessionTimeoutSeconds))
	m.SetHeader("Transport", fmt.Sprintf(
		"RTP/AVP/UDP;unicast;client_port=%d-%d;server_port=%d-%d",
		clientRTP, clientRTCP, localRTPPort, localRTCPPort,
	))
	if err := s.bus.Send(m); err != nil {
		s.log.Warn("send M6 reply failed", slog.Any("error", err))
	}

	if s.enc != nil {
		params := encoder.Params{
			AudioEndpoint: "audio0",
			VideoEndpoint: "video0",
			LocalAddress:  s.localAddr,
			RemoteAddress: s.bus.RemoteAddr(),
			RTPPort:       clientRTP,
			RTCPPort:      clientRTCP,
			X:             0,
			Y:             0,
			W:             1920,
			H:             1080,
		}
		if err := s.enc.Configure(ctx, params); err != nil {
			s.log.Warn("encoder configure failed", slog.Any("error", err))
		}
	}
}

// parseSetupTransport extracts the sink's requested RTP/RTCP client ports
// from the M6 SETUP request's Transport header
// (original_source's "RTP/AVP/UDP;unicast;client_port=P[-P]" parsing).
func parseSetupTransport(req *rtsp.Message) (rtp, rtcp uint16, err error) {
	const prefix = "RTP/AVP/UDP;unicast;client_port="
	transport, ok := req.Header("Transport")
	if !ok {
		return 0, 0, errors.New("wfd: SETUP missing Transport header")
	}
	if !strings.HasPrefix(transport, prefix) {
		return 0, 0, fmt.Errorf("wfd: unsupported Transport %q", transport)
	}
	ports := strings.TrimPrefix(transport, prefix)
	if semi := strings.IndexByte(ports, ';'); semi >= 0 {
		ports = ports[:semi]
	}
	a, b, found := strings.Cut(ports, "-")
	rtpPort, err := strconv.ParseUint(a, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("wfd: invalid client_port %q: %w", ports, err)
	}
	if !found {
		return uint16(rtpPort), 0, nil
	}
	rtcpPort, err := strconv.ParseUint(b, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("wfd: invalid client_port %q: %w", ports, err)
	}
	return uint16(rtpPort), uint16(rtcpPort), nil
}

// reply answers s.pending with the given status, sealing and sending it
// over the Bus. It is a no-op if there is no pending request (e.g. a
// keepalive-timeout-driven action).
func (s *Session) reply(code uint, phrase string) {
	if s.pending == nil {
		return
	}
	m, err := rtsp.NewReplyFor(s.pending, code, phrase)
	if err != nil {
		s.log.Warn("build reply failed", slog.Any("error", err))
		return
	}
	if err := s.bus.Send(m); err != nil {
		s.log.Warn("send reply failed", slog.Any("error", err))
	}
}

// requestWithBody fires an outbound M5 trigger request without waiting for
// the reply; the reply is picked up asynchronously by the Bus's
// match-handler chain and turned into an EventRecvReply once its CSeq is
// matched in takeOutbound.
func (s *Session) requestWithBody(method, uri, body string) {
	m := rtsp.NewRequest(method, uri)
	m.SetBody([]byte(body))
	s.sendTracked(m, M5Trigger)
}

func (s *Session) sendTracked(m *rtsp.Message, id MessageID) {
	cookie := s.cseq.Add(1)
	m.SetHeader("CSeq", fmt.Sprintf("%d", cookie))

	s.outboundMu.Lock()
	s.outbound[cookie] = id
	s.outboundMu.Unlock()

	if err := s.bus.Send(m); err != nil {
		s.log.Warn("send request failed", slog.String("method", m.Method()), slog.Any("error", err))
	}
}

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventRecvRequest:
		return "RecvRequest"
	case EventRecvReply:
		return "RecvReply"
	case EventLocalConnect:
		return "LocalConnect"
	case EventLocalTeardown:
		return "LocalTeardown"
	case EventKeepaliveTimeout:
		return "KeepaliveTimeout"
	case EventEncoderFailed:
		return "EncoderFailed"
	default:
		return fmt.Sprintf(unknownFmt, uint8(k))
	}
}
