// Package model holds the daemon's in-memory Link/Peer/Group graph: the
// managed wireless interfaces, the P2P peers discovered on them, and the
// groups formed with those peers, plus the DHCP helper integration that
// assigns addresses once a group forms. Grounded on internal/bfd/manager.go's
// CRUD/demux pattern (the teacher's Manager owns Sessions by id; this
// Manager owns Links by id, each holding Peers and at most one Group).
package model

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound indicates a lookup by id found nothing.
	ErrNotFound = errors.New("model: not found")
	// ErrSubnetExhausted indicates no subnet octet remained in the 50-255
	// range spec.md reserves for group subnet allocation.
	ErrSubnetExhausted = errors.New("model: subnet range exhausted")
)

// LinkID identifies a managed network interface.
type LinkID string

// PeerID identifies a discovered P2P peer, keyed by its device address.
type PeerID string

// Link is one managed wireless interface capable of Wi-Fi Direct.
type Link struct {
	ID   LinkID
	Name string // kernel interface name, e.g. "wlan0"

	mu     sync.RWMutex
	peers  map[PeerID]*Peer
	group  *Group
}

// newLink creates an empty Link.
func newLink(id LinkID, name string) *Link {
	return &Link{ID: id, Name: name, peers: make(map[PeerID]*Peer)}
}

// Peers returns a snapshot of the link's currently known peers.
func (l *Link) Peers() []*Peer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Peer, 0, len(l.peers))
	for _, p := range l.peers {
		out = append(out, p)
	}
	return out
}

// Group returns the link's active group, or nil if none has formed.
func (l *Link) Group() *Group {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.group
}

// Peer is a discovered Wi-Fi Direct device, cross-referenced from its
// owning Link by id rather than embedding, per the design note on cyclic
// ownership (a Peer also references its Link by id, never by pointer, to
// keep the graph acyclic for GC and for serialization).
type Peer struct {
	ID       PeerID
	LinkID   LinkID
	Name     string
	Address  string // MAC address
	GroupCapab uint8
	DevCapab   uint8
}

// Group is a formed Wi-Fi Direct group (one GO, one or more clients).
type Group struct {
	LinkID    LinkID
	Interface string // the group's kernel interface, e.g. "p2p-wlan0-0"
	SSID      string
	IsGO      bool
	GOAddress string
	Subnet    uint8 // the allocated third octet, 50-255
	Members   map[PeerID]string // peer id -> assigned IPv4 address
}

// Manager owns the full Link/Peer/Group graph for the daemon. One Manager
// per process, shared across the supplicant and encoder supervisors.
type Manager struct {
	mu    sync.RWMutex
	links map[LinkID]*Link

	usedSubnets map[uint8]struct{}
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		links:       make(map[LinkID]*Link),
		usedSubnets: make(map[uint8]struct{}),
	}
}

// AddLink registers a new managed interface.
func (m *Manager) AddLink(id LinkID, name string) *Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := newLink(id, name)
	m.links[id] = l
	return l
}

// RemoveLink unregisters a managed interface, releasing any subnet its
// group had allocated.
func (m *Manager) RemoveLink(id LinkID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok {
		return fmt.Errorf("model: link %s: %w", id, ErrNotFound)
	}
	if l.group != nil {
		delete(m.usedSubnets, l.group.Subnet)
	}
	delete(m.links, id)
	return nil
}

// Link returns the link with the given id.
func (m *Manager) Link(id LinkID) (*Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.links[id]
	if !ok {
		return nil, fmt.Errorf("model: link %s: %w", id, ErrNotFound)
	}
	return l, nil
}

// Links returns a snapshot of all managed links.
func (m *Manager) Links() []*Link {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, l)
	}
	return out
}

// UpsertPeer adds or updates a discovered peer on the given link.
func (m *Manager) UpsertPeer(linkID LinkID, peer *Peer) error {
	l, err := m.Link(linkID)
	if err != nil {
		return err
	}
	peer.LinkID = linkID

	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers[peer.ID] = peer
	return nil
}

// RemovePeer drops a peer from the given link.
func (m *Manager) RemovePeer(linkID LinkID, peerID PeerID) error {
	l, err := m.Link(linkID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.peers, peerID)
	return nil
}

// FormGroup allocates a subnet and records a newly formed group on the
// link, enforcing the 50-255 subnet uniqueness invariant (spec.md's data
// model: no two concurrently active groups may share the allocated
// third-octet subnet).
func (m *Manager) FormGroup(linkID LinkID, g *Group) error {
	l, err := m.Link(linkID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	subnet, err := m.allocateSubnet()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	g.LinkID = linkID
	g.Subnet = subnet
	if g.Members == nil {
		g.Members = make(map[PeerID]string)
	}

	l.mu.Lock()
	l.group = g
	l.mu.Unlock()

	return nil
}

// DissolveGroup removes the link's active group and releases its subnet.
func (m *Manager) DissolveGroup(linkID LinkID) error {
	l, err := m.Link(linkID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	g := l.group
	l.group = nil
	l.mu.Unlock()

	if g != nil {
		m.mu.Lock()
		delete(m.usedSubnets, g.Subnet)
		m.mu.Unlock()
	}
	return nil
}

// allocateSubnet finds the lowest unused octet in [50,255]. Caller must
// hold m.mu.
func (m *Manager) allocateSubnet() (uint8, error) {
	for s := 50; s <= 255; s++ {
		if _, used := m.usedSubnets[uint8(s)]; !used {
			m.usedSubnets[uint8(s)] = struct{}{}
			return uint8(s), nil
		}
	}
	return 0, ErrSubnetExhausted
}
