package rtsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// encode renders m's wire form. Requests/replies use CRLF-terminated
// header lines followed by a blank line and an optional body; data
// messages use the '$' interleaved-binary-data framing.
func encode(m *Message) ([]byte, error) {
	var buf bytes.Buffer

	switch m.typ {
	case TypeRequest:
		if m.method == "" || m.uri == "" {
			return nil, fmt.Errorf("rtsp: request missing method/uri: %w", ErrMalformed)
		}
		fmt.Fprintf(&buf, "%s %s %s\r\n", m.method, m.uri, ProtocolVersion)
	case TypeReply:
		phrase := m.phrase
		if phrase == "" {
			phrase = ReasonPhrase(m.code)
		}
		fmt.Fprintf(&buf, "%s %d %s\r\n", ProtocolVersion, m.code, phrase)
	case TypeData:
		if m.channel > 0xff {
			return nil, fmt.Errorf("rtsp: data channel %d out of range: %w", m.channel, ErrMalformed)
		}
		buf.WriteByte('$')
		buf.WriteByte(byte(m.channel))
		if len(m.payload) > 0xffff {
			return nil, fmt.Errorf("rtsp: data payload too large: %w", ErrTooLarge)
		}
		buf.WriteByte(byte(len(m.payload) >> 8))
		buf.WriteByte(byte(len(m.payload)))
		buf.Write(m.payload)
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("rtsp: cannot encode type %s: %w", m.typ, ErrMalformed)
	}

	headers := m.headerList()
	if len(m.body) > 0 {
		hasCL := false
		for _, h := range headers {
			if strings.EqualFold(h.name, "Content-Length") {
				hasCL = true
				break
			}
		}
		if !hasCL {
			headers = append(append([]header(nil), headers...), header{
				name: "Content-Length", value: strconv.Itoa(len(m.body)),
			})
		}
	}

	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.name, h.value)
	}
	buf.WriteString("\r\n")
	buf.Write(m.body)

	return buf.Bytes(), nil
}

// Decoder reads a sequence of RTSP messages from a stream. It is not safe
// for concurrent use; the Bus drives one Decoder per connection from a
// single reader goroutine.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for RTSP message decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 4096)}
}

// Next reads and classifies the next message from the stream: a request,
// reply, or interleaved data packet. It blocks until a full message has
// arrived, the stream ends, or an error occurs.
func (d *Decoder) Next() (*Message, error) {
	b, err := d.r.Peek(1)
	if err != nil {
		return nil, err
	}

	if b[0] == '$' {
		return d.readData()
	}
	return d.readTextMessage()
}

func (d *Decoder) readData() (*Message, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(d.r, hdr); err != nil {
		return nil, fmt.Errorf("rtsp: read data header: %w", err)
	}
	channel := uint(hdr[1])
	size := int(hdr[2])<<8 | int(hdr[3])

	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, fmt.Errorf("rtsp: read data payload: %w", err)
	}

	return NewData(channel, payload), nil
}

func (d *Decoder) readTextMessage() (*Message, error) {
	line, err := d.readLine()
	if err != nil {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, fmt.Errorf("rtsp: empty start line: %w", ErrMalformed)
	}

	m, err := parseStartLine(line)
	if err != nil {
		return nil, err
	}

	size := 0
	for {
		hline, err := d.readLine()
		if err != nil {
			return nil, fmt.Errorf("rtsp: read header: %w", err)
		}
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}

		name, value, ok := splitHeaderLine(hline)
		if !ok {
			return nil, fmt.Errorf("rtsp: malformed header %q: %w", hline, ErrMalformed)
		}
		m.SetHeader(name, value)

		if strings.EqualFold(name, "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("rtsp: bad Content-Length %q: %w", value, ErrMalformed)
			}
			size = n
		}
	}

	if size > 0 {
		if size > MaxMessageSize {
			return nil, fmt.Errorf("rtsp: body size %d: %w", size, ErrTooLarge)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(d.r, body); err != nil {
			return nil, fmt.Errorf("rtsp: read body: %w", err)
		}
		m.SetBody(body)
	}

	return m, nil
}

// readLine reads a single CRLF- or LF-terminated line, enforcing
// MaxMessageSize as a guard against unbounded header lines.
func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) > MaxMessageSize {
		return "", fmt.Errorf("rtsp: line too long: %w", ErrTooLarge)
	}
	return line, nil
}

// parseStartLine classifies and parses a request line ("METHOD uri
// RTSP/1.0") or a status line ("RTSP/1.0 code phrase").
func parseStartLine(line string) (*Message, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return nil, fmt.Errorf("rtsp: malformed start line %q: %w", line, ErrMalformed)
	}

	if fields[0] == ProtocolVersion {
		code, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("rtsp: malformed status code %q: %w", fields[1], ErrMalformed)
		}
		return NewReply(uint(code), fields[2]), nil
	}

	if fields[2] != ProtocolVersion {
		return nil, fmt.Errorf("rtsp: unsupported version %q: %w", fields[2], ErrMalformed)
	}
	return NewRequest(fields[0], fields[1]), nil
}

// splitHeaderLine splits "Name: value" into its name and value, trimming
// surrounding whitespace from the value per RFC 2326 Section 4.2.
func splitHeaderLine(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}
