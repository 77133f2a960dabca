package model

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/miraclecast/miraclecast/internal/procsup"
)

// DHCPEventKind classifies a line from the DHCP helper's stdout.
type DHCPEventKind uint8

const (
	// DHCPLeaseGroup reports the local IPv4 address assigned on the group
	// interface ("L:<addr>").
	DHCPLeaseGroup DHCPEventKind = iota
	// DHCPLeaseGO reports the Group Owner's address ("G:<addr>").
	DHCPLeaseGO
	// DHCPLeaseRenew reports a client lease assignment ("R:<mac> <addr>").
	DHCPLeaseRenew
)

// DHCPEvent is a single parsed line from the helper's line protocol.
type DHCPEvent struct {
	Kind    DHCPEventKind
	Address string
	MAC     string
}

// ParseDHCPLine parses one line of the helper's stdout protocol
// (spec.md §4.3: "L:", "G:", "R:<mac> <addr>"). It returns ok=false for
// lines that don't match the protocol.
func ParseDHCPLine(line string) (DHCPEvent, bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "L:"):
		return DHCPEvent{Kind: DHCPLeaseGroup, Address: strings.TrimPrefix(line, "L:")}, true
	case strings.HasPrefix(line, "G:"):
		return DHCPEvent{Kind: DHCPLeaseGO, Address: strings.TrimPrefix(line, "G:")}, true
	case strings.HasPrefix(line, "R:"):
		rest := strings.TrimPrefix(line, "R:")
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return DHCPEvent{}, false
		}
		return DHCPEvent{Kind: DHCPLeaseRenew, MAC: fields[0], Address: fields[1]}, true
	default:
		return DHCPEvent{}, false
	}
}

// DHCPHelper supervises the external DHCP server/client helper process
// for one group's interface (spec.md §4.3: the helper binary itself is a
// named collaborator, not implemented here; this type only implements
// the parent side -- spawn, socketpair, line reader, teardown).
type DHCPHelper struct {
	proc   *procsup.Process
	events chan DHCPEvent
	log    *slog.Logger
}

// SpawnDHCPHelper starts the helper binary against the given group
// interface, in the given role: as Group Owner (isGO) it runs as a
// server handing out 192.168.<subnet>.x, otherwise as a client. The
// helper writes its L:/G:/R: lines to fd 3, the child end of a private
// socketpair, which is read into Events().
func SpawnDHCPHelper(ctx context.Context, binPath, iface string, isGO bool, subnet uint8, log *slog.Logger) (*DHCPHelper, error) {
	if log == nil {
		log = slog.Default()
	}

	args := []string{"--netdev", iface}
	if isGO {
		args = []string{"--server", "--prefix", fmt.Sprintf("192.168.%d", subnet), "--netdev", iface}
	}

	proc, err := procsup.Spawn(ctx, procsup.Spec{
		Path:           binPath,
		Args:           args,
		WithSocketpair: true,
		Log:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("model: spawn dhcp helper: %w", err)
	}

	h := &DHCPHelper{proc: proc, events: make(chan DHCPEvent, 16), log: log}
	go h.feedLines(bufio.NewScanner(proc.ControlConn))
	return h, nil
}

// Events returns the channel of lease events parsed from the helper's
// socketpair. It is closed once the helper's end of the socketpair
// reaches EOF.
func (h *DHCPHelper) Events() <-chan DHCPEvent { return h.events }

// Stop terminates the helper process.
func (h *DHCPHelper) Stop() error { return h.proc.Stop() }

// feedLines drives Events() from a raw line stream, closing the channel
// when the stream ends.
func (h *DHCPHelper) feedLines(r *bufio.Scanner) {
	for r.Scan() {
		if ev, ok := ParseDHCPLine(r.Text()); ok {
			h.events <- ev
		}
	}
	close(h.events)
}
