// Package encoder supervises the external GStreamer-based encoder/decoder
// child process over a private peer-to-peer D-Bus connection. The child
// binary itself is a named collaborator (spec.md Non-goals); this package
// only implements the parent side: spawn, handshake, Configure/Start/
// Pause/Stop, and liveness watching.
package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/miraclecast/miraclecast/internal/procsup"
)

// unknownFmt is the format string for unrecognized enum values with numeric code.
const unknownFmt = "Unknown(%d)"

// State is the encoder child's lifecycle state (original_source's
// dispd-encoder.c state machine).
type State uint8

const (
	StateNull State = iota
	StateConfigured
	StateReady
	StateStarted
	StatePaused
	StateTerminated
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateNull:
		return "Null"
	case StateConfigured:
		return "Configured"
	case StateReady:
		return "Ready"
	case StateStarted:
		return "Started"
	case StatePaused:
		return "Paused"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf(unknownFmt, uint8(s))
	}
}

// ErrNotConfigured indicates Configure/Start/Pause/Stop was called before
// Attach connected the private bus.
var ErrNotConfigured = errors.New("encoder: not configured")

// configKey are the dictionary's integer keys for the Configure method's
// a{iv} argument, grounded on original_source/src/disp/dispd-encoder.c.
type configKey int32

const (
	keyAudioEndpoint configKey = iota
	keyVideoEndpoint
	keyLocalAddress
	keyRemoteAddress
	keyRTPPorts
	keyDisplayRect
)

// Params configures the encoder pipeline for one session.
type Params struct {
	AudioEndpoint string
	VideoEndpoint string
	LocalAddress  string
	RemoteAddress string
	RTPPort       uint16
	RTCPPort      uint16
	X, Y, W, H    uint16 // display rectangle
}

// Controller supervises one encoder child process and its private D-Bus
// connection. Spawn grounded on internal/procsup (mediasoup-go worker
// pattern); the private bus handshake and Configure dictionary follow
// original_source's dispd-encoder.c.
type Controller struct {
	proc *procsup.Process
	conn *dbus.Conn
	obj  dbus.BusObject

	state atomic.Uint32
	log   *slog.Logger
}

// Spawn starts the encoder binary, inheriting fd 3 as a socketpair end.
// It reads no handshake: the child's stdout goes to procsup's log pump,
// and the private bus is connected separately by Attach.
func Spawn(ctx context.Context, binPath string, args []string, log *slog.Logger) (*Controller, error) {
	if log == nil {
		log = slog.Default()
	}

	proc, err := procsup.Spawn(ctx, procsup.Spec{
		Path:           binPath,
		Args:           args,
		WithSocketpair: true,
		KillGrace:      time.Second,
		Log:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("encoder: spawn: %w", err)
	}

	c := &Controller{proc: proc, log: log}
	c.state.Store(uint32(StateNull))
	return c, nil
}

// Attach completes the handshake by dialing the private bus via godbus.
// addrLine is the "unix:path=..." address string the child wrote as its
// second handshake line (after its bus name, see readHandshake); Attach
// does not read it itself, so callers pass the parsed address here.
func (c *Controller) Attach(addrLine string) error {
	conn, err := dbus.Dial(addrLine)
	if err != nil {
		return fmt.Errorf("encoder: dial private bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return fmt.Errorf("encoder: auth: %w", err)
	}

	c.conn = conn
	c.obj = conn.Object("org.miraclecast.Encoder", dbus.ObjectPath("/org/miraclecast/Encoder"))

	if err := c.watchSignals(); err != nil {
		conn.Close()
		return err
	}

	c.state.Store(uint32(StateConfigured))
	return nil
}

// watchSignals subscribes to PropertiesChanged (pipeline state updates)
// and NameOwnerChanged (liveness: the child disappearing from the bus).
func (c *Controller) watchSignals() error {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("encoder: watch PropertiesChanged: %w", err)
	}

	if err := c.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return fmt.Errorf("encoder: watch NameOwnerChanged: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)
	go c.handleSignals(signals)
	return nil
}

func (c *Controller) handleSignals(signals <-chan *dbus.Signal) {
	for sig := range signals {
		switch sig.Name {
		case "org.freedesktop.DBus.NameOwnerChanged":
			c.log.Warn("encoder bus owner changed, treating as liveness loss")
			c.state.Store(uint32(StateTerminated))
		case "org.freedesktop.DBus.Properties.PropertiesChanged":
			c.log.Debug("encoder properties changed", slog.Any("signal", sig.Body))
		}
	}
}

// Configure marshals Params into the a{iv} dictionary Configure expects
// and calls it over the private bus.
func (c *Controller) Configure(ctx context.Context, p Params) error {
	if c.obj == nil {
		return ErrNotConfigured
	}

	args := map[configKey]dbus.Variant{
		keyAudioEndpoint: dbus.MakeVariant(p.AudioEndpoint),
		keyVideoEndpoint: dbus.MakeVariant(p.VideoEndpoint),
		keyLocalAddress:  dbus.MakeVariant(p.LocalAddress),
		keyRemoteAddress: dbus.MakeVariant(p.RemoteAddress),
		keyRTPPorts:      dbus.MakeVariant(strconv.Itoa(int(p.RTPPort)) + "/" + strconv.Itoa(int(p.RTCPPort))),
		keyDisplayRect:    dbus.MakeVariant([]uint16{p.X, p.Y, p.W, p.H}),
	}

	call := c.obj.CallWithContext(ctx, "org.miraclecast.Encoder.Configure", 0, toVariantMap(args))
	if call.Err != nil {
		return fmt.Errorf("encoder: Configure: %w", call.Err)
	}

	c.state.Store(uint32(StateReady))
	return nil
}

func toVariantMap(in map[configKey]dbus.Variant) map[int32]dbus.Variant {
	out := make(map[int32]dbus.Variant, len(in))
	for k, v := range in {
		out[int32(k)] = v
	}
	return out
}

// Start starts the pipeline (StateReady/StatePaused -> StateStarted).
func (c *Controller) Start(ctx context.Context) error {
	return c.simpleCall(ctx, "Start", StateStarted)
}

// Pause pauses the pipeline (StateStarted -> StatePaused).
func (c *Controller) Pause(ctx context.Context) error {
	return c.simpleCall(ctx, "Pause", StatePaused)
}

// Stop stops the pipeline, then asks procsup to SIGTERM the child and
// SIGKILL it if it has not exited after a 1s grace period.
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.simpleCall(ctx, "Stop", StateTerminated); err != nil {
		c.log.Warn("encoder graceful stop failed, killing child", slog.Any("error", err))
		return c.proc.Stop()
	}
	return c.proc.Stop()
}

func (c *Controller) simpleCall(ctx context.Context, method string, next State) error {
	if c.obj == nil {
		return ErrNotConfigured
	}
	call := c.obj.CallWithContext(ctx, "org.miraclecast.Encoder."+method, 0)
	if call.Err != nil {
		return fmt.Errorf("encoder: %s: %w", method, call.Err)
	}
	c.state.Store(uint32(next))
	return nil
}

// State returns the encoder's current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// readHandshake is a small helper for tests/integration code that taps
// the child's stdout directly rather than through procsup's pumped log:
// it reads the two handshake lines (bus name, then bus address) the
// child writes before entering its own event loop.
func readHandshake(r *bufio.Reader) (name, addr string, err error) {
	name, err = r.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("encoder: read handshake name: %w", err)
	}
	addr, err = r.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("encoder: read handshake addr: %w", err)
	}
	return name, addr, nil
}
