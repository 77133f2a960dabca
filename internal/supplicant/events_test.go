package supplicant

import "testing"

func TestParseEventDeviceFound(t *testing.T) {
	ev, ok := ParseEvent("P2P-DEVICE-FOUND 02:10:de:ad:be:ef p2p_dev_addr=02:10:de:ad:be:ef pri_dev_type=10-0050F204-5 name='Sink' config_methods=0x188 dev_capab=0x25 group_capab=0x0")
	if !ok {
		t.Fatal("ParseEvent() ok = false")
	}
	if ev.Kind != EventDeviceFound {
		t.Fatalf("Kind = %v, want DeviceFound", ev.Kind)
	}
	if ev.Peer != "02:10:de:ad:be:ef" {
		t.Fatalf("Peer = %q", ev.Peer)
	}
	if ev.Fields["config_methods"] != "0x188" {
		t.Fatalf("Fields[config_methods] = %q", ev.Fields["config_methods"])
	}
}

func TestParseEventUnknownLine(t *testing.T) {
	if _, ok := ParseEvent("CTRL-EVENT-SCAN-STARTED"); ok {
		t.Fatal("expected unknown event to be rejected")
	}
}

func TestParseEventGroupStarted(t *testing.T) {
	ev, ok := ParseEvent("P2P-GROUP-STARTED p2p-wlan0-0 GO ssid=\"DIRECT-ab\" freq=2412 go_dev_addr=02:10:de:ad:be:ef")
	if !ok {
		t.Fatal("ParseEvent() ok = false")
	}
	if ev.Kind != EventGroupStarted {
		t.Fatalf("Kind = %v, want GroupStarted", ev.Kind)
	}
}

func TestLooksLikeMAC(t *testing.T) {
	if !looksLikeMAC("02:10:de:ad:be:ef") {
		t.Fatal("expected valid MAC to match")
	}
	if looksLikeMAC("GO") {
		t.Fatal("expected short token to not match")
	}
}

func TestCommandBuilders(t *testing.T) {
	if got := Find(30); got != "P2P_FIND 30" {
		t.Fatalf("Find(30) = %q", got)
	}
	if got := Find(0); got != "P2P_FIND" {
		t.Fatalf("Find(0) = %q", got)
	}
	if got := ConnectPBC("02:10:de:ad:be:ef", true); got != "P2P_CONNECT 02:10:de:ad:be:ef pbc join" {
		t.Fatalf("ConnectPBC() = %q", got)
	}
	if got := ServiceDiscoveryRequest("", "0002000102030a"); got != "P2P_SERV_DISC_REQ 00:00:00:00:00:00 0002000102030a" {
		t.Fatalf("ServiceDiscoveryRequest() = %q", got)
	}
}
