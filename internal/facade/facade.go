// Package facade exposes a thin D-Bus object surface over the daemon's
// Link and Peer state for external consumers (cmd/miraclectl and any
// third-party control UI); session state is not exposed. Deliberately small: spec.md names the façade
// as an external interface but excludes a complete
// one-interface-per-object implementation as a non-goal.
package facade

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/miraclecast/miraclecast/internal/model"
)

// BusName is the well-known D-Bus name the daemon claims.
const BusName = "org.miraclecast.Daemon"

// ObjectPath is the single manager object this façade exposes; per-link
// and per-peer objects are deliberately not modeled (see package doc).
const ObjectPath = dbus.ObjectPath("/org/miraclecast/Manager")

// Manager implements the org.miraclecast.Manager D-Bus interface, backed
// by an internal/model.Manager.
type Manager struct {
	model *model.Manager
	log   *slog.Logger
}

// NewManager creates a façade bound to m.
func NewManager(m *model.Manager, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{model: m, log: log}
}

// linkSummary is the D-Bus-exported view of a Link: plain strings and
// primitives only, the subset a CLI or UI needs.
type linkSummary struct {
	ID        string
	Name      string
	PeerCount int
	HasGroup  bool
}

// ListLinks is exported over D-Bus as org.miraclecast.Manager.ListLinks.
func (m *Manager) ListLinks() ([]linkSummary, *dbus.Error) {
	links := m.model.Links()
	out := make([]linkSummary, 0, len(links))
	for _, l := range links {
		out = append(out, linkSummary{
			ID:        string(l.ID),
			Name:      l.Name,
			PeerCount: len(l.Peers()),
			HasGroup:  l.Group() != nil,
		})
	}
	return out, nil
}

// peerSummary is the D-Bus-exported view of a Peer.
type peerSummary struct {
	ID      string
	Name    string
	Address string
}

// ListPeers is exported over D-Bus as org.miraclecast.Manager.ListPeers.
func (m *Manager) ListPeers(linkID string) ([]peerSummary, *dbus.Error) {
	link, err := m.model.Link(model.LinkID(linkID))
	if err != nil {
		return nil, dbus.MakeFailedError(fmt.Errorf("facade: %w", err))
	}

	peers := link.Peers()
	out := make([]peerSummary, 0, len(peers))
	for _, p := range peers {
		out = append(out, peerSummary{ID: string(p.ID), Name: p.Name, Address: p.Address})
	}
	return out, nil
}

// Export registers the façade's methods on conn under ObjectPath and
// claims BusName.
func Export(conn *dbus.Conn, m *Manager) error {
	if err := conn.Export(m, ObjectPath, "org.miraclecast.Manager"); err != nil {
		return fmt.Errorf("facade: export: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("facade: request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("facade: bus name %s already owned", BusName)
	}

	return nil
}
