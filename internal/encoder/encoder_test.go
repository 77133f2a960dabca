package encoder

import (
	"bufio"
	"strings"
	"testing"
)

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateNull:       "Null",
		StateConfigured: "Configured",
		StateReady:      "Ready",
		StateStarted:    "Started",
		StatePaused:     "Paused",
		StateTerminated: "Terminated",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestReadHandshake(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("org.miraclecast.Encoder\nunix:path=/tmp/encoder-123\n"))
	name, addr, err := readHandshake(r)
	if err != nil {
		t.Fatalf("readHandshake() error = %v", err)
	}
	if strings.TrimSpace(name) != "org.miraclecast.Encoder" {
		t.Fatalf("name = %q", name)
	}
	if strings.TrimSpace(addr) != "unix:path=/tmp/encoder-123" {
		t.Fatalf("addr = %q", addr)
	}
}

func TestControllerNotConfiguredErrors(t *testing.T) {
	c := &Controller{}
	if err := c.Configure(nil, Params{}); err == nil { //nolint:staticcheck // nil ctx ok: call never reaches network
		t.Fatal("expected ErrNotConfigured")
	}
}
