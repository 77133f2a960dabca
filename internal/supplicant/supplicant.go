// Package supplicant drives the external wpa_supplicant-style Wi-Fi P2P
// control process: spawning it per managed link, parsing its unsolicited
// event stream, and building the command lines that drive discovery and
// group formation. Grounded on internal/bfd/manager.go's CRUD/lifecycle
// pattern, generalized from BFD sessions to supplicant child processes.
package supplicant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/miraclecast/miraclecast/internal/procsup"
)

// unknownFmt is the format string for unrecognized enum values with numeric code.
const unknownFmt = "Unknown(%d)"

// State is the supplicant child process's lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateSpawned
	StateOpen
	StateReady
	StateDead
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSpawned:
		return "Spawned"
	case StateOpen:
		return "Open"
	case StateReady:
		return "Ready"
	case StateDead:
		return "Dead"
	default:
		return fmt.Sprintf(unknownFmt, uint8(s))
	}
}

var (
	// ErrNotReady indicates a command was issued before the supplicant
	// reached StateReady.
	ErrNotReady = errors.New("supplicant: not ready")
	// ErrConnectPending indicates a second P2P_CONNECT was attempted while
	// one was already outstanding (spec.md's single-pending-connect rule).
	ErrConnectPending = errors.New("supplicant: connect already pending")
)

// Config configures a Supplicant instance for one managed link.
type Config struct {
	BinaryPath  string
	CtrlDir     string // control-socket directory, passed via -C
	Interface   string
	DeviceName  string
	ConfigMethods string // e.g. "pbc display keypad"
	Log         *slog.Logger
}

// Supplicant supervises one wpa_supplicant child and exposes its P2P
// control surface. One Supplicant instance per managed Link.
type Supplicant struct {
	cfg       Config
	configPath string

	proc *procsup.Process
	ctrl *conn

	state      atomic.Uint32
	events     chan Event
	restartLim *limiter

	connectMu      sync.Mutex
	connectPending bool
}

// New creates a Supplicant for cfg. The caller must call Start to spawn
// the child process.
func New(cfg Config) *Supplicant {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	s := &Supplicant{
		cfg:        cfg,
		events:     make(chan Event, 64),
		restartLim: newLimiter(),
	}
	s.state.Store(uint32(StateIdle))
	return s
}

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Supplicant) State() State { return State(s.state.Load()) }

// Events returns the channel of parsed unsolicited events. Closed once
// the supplicant dies and is not restarted.
func (s *Supplicant) Events() <-chan Event { return s.events }

// Start writes a per-link config file and spawns the supplicant child,
// grounded on original_source §6's literal device_name/device_type/
// config_methods/driver_param/ap_scan keys.
func (s *Supplicant) Start(ctx context.Context) error {
	if !s.restartLim.Allow() {
		return fmt.Errorf("supplicant: restart rate limited for %s: %w", s.cfg.Interface, ErrRateLimited)
	}

	path, err := s.writeConfig()
	if err != nil {
		return err
	}
	s.configPath = path

	proc, err := procsup.Spawn(ctx, procsup.Spec{
		Path: s.cfg.BinaryPath,
		Args: []string{
			"-i", s.cfg.Interface,
			"-C", s.cfg.CtrlDir,
			"-c", path,
		},
		Log: s.cfg.Log,
	})
	if err != nil {
		return fmt.Errorf("supplicant: spawn: %w", err)
	}
	s.proc = proc
	s.state.Store(uint32(StateSpawned))

	go s.awaitExit()

	return nil
}

// writeConfig renders the plain key=value wpa_supplicant config file for
// this link. This is intentionally not koanf-based: the upstream format is
// a flat key=value file, not a layered app config (original_source §6).
func (s *Supplicant) writeConfig() (string, error) {
	dir := os.TempDir()
	name := fmt.Sprintf("miracled-wpa-%s-%s.conf", s.cfg.Interface, uuid.NewString())
	path := filepath.Join(dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "ctrl_interface=%s\n", s.cfg.CtrlDir)
	fmt.Fprintf(&b, "device_name=%s\n", s.cfg.DeviceName)
	fmt.Fprintf(&b, "device_type=7-0050F204-1\n")
	fmt.Fprintf(&b, "config_methods=%s\n", s.cfg.ConfigMethods)
	fmt.Fprintf(&b, "driver_param=p2p_device=1\n")
	fmt.Fprintf(&b, "ap_scan=1\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("supplicant: write config: %w", err)
	}
	return path, nil
}

// awaitExit waits for the child to exit and marks the supplicant Dead.
func (s *Supplicant) awaitExit() {
	err := s.proc.Wait()
	s.state.Store(uint32(StateDead))
	if s.ctrl != nil {
		s.ctrl.close()
	}
	if err != nil {
		s.cfg.Log.Warn("supplicant exited", slog.String("iface", s.cfg.Interface), slog.Any("error", err))
	}
	close(s.events)
	os.Remove(s.configPath)
}

// Stop terminates the supplicant child.
func (s *Supplicant) Stop() error {
	if s.proc == nil {
		return nil
	}
	return s.proc.Stop()
}

// Reconfigure re-issues SET device_name without a full restart
// (original_source/src/wifi/wifid-supplicant.c supports this; spec.md's
// Ready-state description treats it as startup-only). It does not re-send
// WFD_SUBELEM_SET, and the daemon's SIGHUP handler does not call it.
func (s *Supplicant) Reconfigure(deviceName string) error {
	if s.State() != StateReady {
		return ErrNotReady
	}
	if _, err := s.SendCommand(SetDeviceName(deviceName)); err != nil {
		return fmt.Errorf("supplicant: reconfigure: %w", err)
	}
	s.cfg.DeviceName = deviceName
	return nil
}

// markReady transitions Open -> Ready once the control channel handshake
// (PING answered with PONG) succeeds; no ATTACH or STATUS is issued
// before Ready.
func (s *Supplicant) markReady() {
	s.state.CompareAndSwap(uint32(StateOpen), uint32(StateReady))
}

// markOpen transitions Spawned -> Open once the control socket connects.
func (s *Supplicant) markOpen() {
	s.state.CompareAndSwap(uint32(StateSpawned), uint32(StateOpen))
}

// parseEvents reads supplicant control-interface event lines from r and
// pushes parsed Events until r is exhausted or the context is cancelled.
func (s *Supplicant) parseEvents(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if ev, ok := ParseEvent(scanner.Text()); ok {
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
