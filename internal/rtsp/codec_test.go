package rtsp

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeRequest(t *testing.T) {
	m := NewRequest("OPTIONS", "*")
	m.SetHeader("CSeq", "1")
	m.SetHeader("Require", "org.wfa.wfd1.0")

	if err := m.Seal(); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	raw := string(m.Raw())
	if !strings.HasPrefix(raw, "OPTIONS * RTSP/1.0\r\n") {
		t.Fatalf("unexpected start line in %q", raw)
	}
	if !strings.Contains(raw, "CSeq: 1\r\n") {
		t.Fatalf("missing CSeq header in %q", raw)
	}
	if !strings.HasSuffix(raw, "\r\n\r\n") {
		t.Fatalf("missing trailing blank line in %q", raw)
	}
}

func TestEncodeReplyWithBody(t *testing.T) {
	m := NewReply(StatusOK, "")
	m.SetHeader("CSeq", "2")
	m.SetBody([]byte("wfd_video_formats: 00 00 02 10..."))

	if err := m.Seal(); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	raw := string(m.Raw())
	if !strings.HasPrefix(raw, "RTSP/1.0 200 OK\r\n") {
		t.Fatalf("unexpected status line in %q", raw)
	}
	if !strings.Contains(raw, "Content-Length: 33\r\n") {
		t.Fatalf("missing Content-Length in %q", raw)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    *Message
	}{
		{"request", NewRequest("SETUP", "rtsp://localhost/wfd1.0/streamid=0")},
		{"reply", NewReply(StatusNotImplemented, "")},
		{"data", NewData(0, []byte{0x01, 0x02, 0x03})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.m.SetHeader("CSeq", "7")
			if err := tc.m.Seal(); err != nil {
				t.Fatalf("Seal() error = %v", err)
			}

			dec := NewDecoder(bytes.NewReader(tc.m.Raw()))
			got, err := dec.Next()
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if got.Type() != tc.m.Type() {
				t.Fatalf("Type() = %v, want %v", got.Type(), tc.m.Type())
			}
		})
	}
}

func TestDecodeMalformedStartLine(t *testing.T) {
	dec := NewDecoder(strings.NewReader("garbage\r\n\r\n"))
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected error for malformed start line")
	}
}

func TestSealedMessageImmutable(t *testing.T) {
	m := NewRequest("PLAY", "rtsp://localhost/wfd1.0/streamid=0")
	if err := m.Seal(); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic mutating sealed message")
		}
	}()
	m.SetHeader("CSeq", "1")
}

func TestIsRequestWildcards(t *testing.T) {
	m := NewRequest("GET_PARAMETER", "rtsp://localhost/wfd1.0")
	if !m.IsRequest("", "") {
		t.Fatal("expected wildcard match")
	}
	if !m.IsRequest("GET_PARAMETER", "") {
		t.Fatal("expected method-only match")
	}
	if m.IsRequest("SETUP", "") {
		t.Fatal("expected method mismatch to fail")
	}
}

func TestReasonPhraseUnknown(t *testing.T) {
	if got := ReasonPhrase(999); got != "Unknown(999)" {
		t.Fatalf("ReasonPhrase(999) = %q", got)
	}
}
