package model

import "testing"

func TestManagerLinkLifecycle(t *testing.T) {
	m := NewManager()
	m.AddLink("link0", "wlan0")

	l, err := m.Link("link0")
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if l.Name != "wlan0" {
		t.Fatalf("Name = %q", l.Name)
	}

	if err := m.RemoveLink("link0"); err != nil {
		t.Fatalf("RemoveLink() error = %v", err)
	}
	if _, err := m.Link("link0"); err == nil {
		t.Fatal("expected ErrNotFound after RemoveLink")
	}
}

func TestManagerPeerCRUD(t *testing.T) {
	m := NewManager()
	m.AddLink("link0", "wlan0")

	peer := &Peer{ID: "aa:bb", Address: "aa:bb:cc:dd:ee:ff", Name: "Sink"}
	if err := m.UpsertPeer("link0", peer); err != nil {
		t.Fatalf("UpsertPeer() error = %v", err)
	}

	l, _ := m.Link("link0")
	if len(l.Peers()) != 1 {
		t.Fatalf("len(Peers()) = %d, want 1", len(l.Peers()))
	}

	if err := m.RemovePeer("link0", "aa:bb"); err != nil {
		t.Fatalf("RemovePeer() error = %v", err)
	}
	if len(l.Peers()) != 0 {
		t.Fatalf("len(Peers()) after remove = %d, want 0", len(l.Peers()))
	}
}

func TestManagerGroupSubnetUniqueness(t *testing.T) {
	m := NewManager()
	m.AddLink("link0", "wlan0")
	m.AddLink("link1", "wlan1")

	if err := m.FormGroup("link0", &Group{IsGO: true}); err != nil {
		t.Fatalf("FormGroup(link0) error = %v", err)
	}
	if err := m.FormGroup("link1", &Group{IsGO: true}); err != nil {
		t.Fatalf("FormGroup(link1) error = %v", err)
	}

	g0, _ := m.Link("link0")
	g1, _ := m.Link("link1")
	if g0.Group().Subnet == g1.Group().Subnet {
		t.Fatalf("subnets collided: both %d", g0.Group().Subnet)
	}
	if g0.Group().Subnet < 50 || g0.Group().Subnet > 255 {
		t.Fatalf("subnet %d out of [50,255] range", g0.Group().Subnet)
	}
}

func TestManagerDissolveGroupReleasesSubnet(t *testing.T) {
	m := NewManager()
	m.AddLink("link0", "wlan0")
	m.FormGroup("link0", &Group{IsGO: true})

	l, _ := m.Link("link0")
	subnet := l.Group().Subnet

	if err := m.DissolveGroup("link0"); err != nil {
		t.Fatalf("DissolveGroup() error = %v", err)
	}
	if l.Group() != nil {
		t.Fatal("Group() should be nil after dissolve")
	}

	m.AddLink("link1", "wlan1")
	if err := m.FormGroup("link1", &Group{IsGO: true}); err != nil {
		t.Fatalf("FormGroup(link1) error = %v", err)
	}
	l1, _ := m.Link("link1")
	if l1.Group().Subnet != subnet {
		t.Fatalf("expected released subnet %d to be reused, got %d", subnet, l1.Group().Subnet)
	}
}

func TestSubnetExhausted(t *testing.T) {
	m := NewManager()
	for s := 50; s <= 255; s++ {
		m.usedSubnets[uint8(s)] = struct{}{}
	}
	m.AddLink("link0", "wlan0")
	if err := m.FormGroup("link0", &Group{}); err == nil {
		t.Fatal("expected ErrSubnetExhausted")
	}
}
