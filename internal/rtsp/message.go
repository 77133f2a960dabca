// Package rtsp implements the RTSP/1.0 message transport used for Miracast
// M1-M16 session negotiation (RFC 2326, restricted to the subset the
// Wi-Fi Display spec exercises: requests, replies, and interleaved data).
package rtsp

import (
	"fmt"
	"strconv"
	"strings"
)

// unknownStr is the string representation for unrecognized enum values.
const unknownStr = "Unknown"

// unknownFmt is the format string for unrecognized enum values with numeric code.
const unknownFmt = "Unknown(%d)"

// ProtocolVersion is the RTSP version string carried on the request/reply
// line. Miracast sinks and sources speak RTSP/1.0 exclusively.
const ProtocolVersion = "RTSP/1.0"

// Type identifies the three RTSP message shapes the transport recognizes.
type Type uint8

const (
	// TypeUnknown marks a message that failed classification.
	TypeUnknown Type = iota
	// TypeRequest is a method/uri/version request line.
	TypeRequest
	// TypeReply is a version/code/phrase status line.
	TypeReply
	// TypeData is an interleaved binary data packet ('$' + channel + len).
	TypeData
)

// String returns the human-readable name of the message type.
func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "Request"
	case TypeReply:
		return "Reply"
	case TypeData:
		return "Data"
	default:
		return unknownStr
	}
}

// AnyCode matches any status code in a reply predicate.
const AnyCode = ^uint(0)

// AnyChannel matches any channel in a data predicate.
const AnyChannel = ^uint(0)

// header is a single ordered header field. RTSP headers are order-sensitive
// for repeated fields (e.g. multiple Transport lines are never used here,
// but WWW-Authenticate could repeat), so headers are stored as an ordered
// list rather than a map.
type header struct {
	name  string
	value string
}

// Message is a single RTSP protocol message: a request, a reply, or an
// interleaved data packet. A Message is built incrementally with
// SetHeader and SetBody and becomes immutable once Seal is called.
type Message struct {
	typ Type

	method string
	uri    string

	code   uint
	phrase string

	channel uint
	payload []byte

	headers []header
	body    []byte

	cookie uint64
	sealed bool
	raw    []byte
}

// NewRequest builds an unsealed request message for method/uri.
func NewRequest(method, uri string) *Message {
	return &Message{typ: TypeRequest, method: method, uri: uri}
}

// NewReply builds an unsealed reply message with the given status code and
// reason phrase. Use NewReplyFor to build a reply bound to a request's CSeq.
func NewReply(code uint, phrase string) *Message {
	return &Message{typ: TypeReply, code: code, phrase: phrase}
}

// NewReplyFor builds a reply to orig, copying its CSeq header so the Bus's
// call table can match it back to the waiting caller.
func NewReplyFor(orig *Message, code uint, phrase string) (*Message, error) {
	cseq, ok := orig.Header("CSeq")
	if !ok {
		return nil, fmt.Errorf("rtsp: reply for request without CSeq: %w", ErrMalformed)
	}
	m := NewReply(code, phrase)
	m.SetHeader("CSeq", cseq)
	return m, nil
}

// NewData builds an interleaved data message carrying payload on channel.
func NewData(channel uint, payload []byte) *Message {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return &Message{typ: TypeData, channel: channel, payload: buf}
}

// Type returns the message's classification.
func (m *Message) Type() Type { return m.typ }

// IsRequest reports whether m is a request for method and uri. An empty
// method or uri acts as a wildcard, matching RFC2326_ANY_CODE's spirit.
func (m *Message) IsRequest(method, uri string) bool {
	if m.typ != TypeRequest {
		return false
	}
	if method != "" && m.method != method {
		return false
	}
	if uri != "" && m.uri != uri {
		return false
	}
	return true
}

// IsReply reports whether m is a reply with the given code and phrase.
// AnyCode matches any status code; an empty phrase matches any phrase.
func (m *Message) IsReply(code uint, phrase string) bool {
	if m.typ != TypeReply {
		return false
	}
	if code != AnyCode && m.code != code {
		return false
	}
	if phrase != "" && m.phrase != phrase {
		return false
	}
	return true
}

// IsData reports whether m is an interleaved data packet on channel.
// AnyChannel matches any channel.
func (m *Message) IsData(channel uint) bool {
	if m.typ != TypeData {
		return false
	}
	return channel == AnyChannel || m.channel == channel
}

// Method returns the request method, or "" for non-requests.
func (m *Message) Method() string { return m.method }

// URI returns the request URI, or "" for non-requests.
func (m *Message) URI() string { return m.uri }

// Code returns the reply status code, or 0 for non-replies.
func (m *Message) Code() uint { return m.code }

// Phrase returns the reply reason phrase, or "" for non-replies.
func (m *Message) Phrase() string { return m.phrase }

// Channel returns the interleaved data channel, or 0 for non-data messages.
func (m *Message) Channel() uint { return m.channel }

// Payload returns the interleaved data payload, or nil for non-data messages.
func (m *Message) Payload() []byte { return m.payload }

// Cookie returns the call-matching cookie assigned when the message was
// sent via Bus.Call, or 0 if the message was never assigned one.
func (m *Message) Cookie() uint64 { return m.cookie }

// IsSealed reports whether m has been sealed and can no longer be mutated.
func (m *Message) IsSealed() bool { return m.sealed }

// Body returns the message body (SDP payload for RTSP requests/replies).
func (m *Message) Body() []byte { return m.body }

// Raw returns the serialized wire form, valid only after Seal.
func (m *Message) Raw() []byte { return m.raw }

// Header returns the value of the named header, case-insensitively, and
// whether it was present.
func (m *Message) Header(name string) (string, bool) {
	for _, h := range m.headers {
		if strings.EqualFold(h.name, name) {
			return h.value, true
		}
	}
	return "", false
}

// SetHeader sets or replaces the named header. It panics if called on a
// sealed message; sealing freezes the header table per the transport's
// immutability invariant.
func (m *Message) SetHeader(name, value string) {
	if m.sealed {
		panic("rtsp: SetHeader on sealed message")
	}
	for i, h := range m.headers {
		if strings.EqualFold(h.name, name) {
			m.headers[i].value = value
			return
		}
	}
	m.headers = append(m.headers, header{name: name, value: value})
}

// SetBody sets the message body. It panics if called on a sealed message.
func (m *Message) SetBody(body []byte) {
	if m.sealed {
		panic("rtsp: SetBody on sealed message")
	}
	m.body = append([]byte(nil), body...)
}

// setCookie assigns the call-matching cookie. Only the Bus may call this,
// before Seal.
func (m *Message) setCookie(cookie uint64) {
	if m.sealed {
		panic("rtsp: setCookie on sealed message")
	}
	m.cookie = cookie
	m.SetHeader("CSeq", strconv.FormatUint(cookie, 10))
}

// Seal freezes the header table and renders the wire form into raw. A
// sealed message is immutable: further SetHeader/SetBody calls panic.
func (m *Message) Seal() error {
	if m.sealed {
		return nil
	}
	raw, err := encode(m)
	if err != nil {
		return err
	}
	m.raw = raw
	m.sealed = true
	return nil
}

// headerList exposes the ordered header table for the codec. It is not
// part of the public API surface other packages should rely on.
func (m *Message) headerList() []header { return m.headers }
