package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCallTimeout is the default wait for a Call reply before the
// pending call is cancelled and ErrTimeout is returned.
const DefaultCallTimeout = 5 * time.Second

// HandlerFunc observes the messages the Bus receives that the call table
// does not take: requests, and replies with no pending Call. It returns
// true if it consumed the message (stopping further match handlers from
// seeing it).
type HandlerFunc func(bus *Bus, m *Message) bool

// call tracks one outstanding Bus.Call waiting for a reply.
type call struct {
	reply chan *Message
	done  chan struct{}
}

// Bus drives one RTSP connection: a reader goroutine decodes incoming
// messages and dispatches them to either the CSeq call table (replies) or
// the match-handler chain (requests and unmatched replies), while Send/Call
// serialize writes onto the connection. This mirrors the teacher's
// Session goroutine: one loop per connection, channel-driven, with atomic
// state for cheap concurrent reads.
type Bus struct {
	conn net.Conn
	dec  *Decoder
	log  *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	calls    map[uint64]*call
	matches  []HandlerFunc
	nextSeq  uint64

	closed atomic.Bool
	doneCh chan struct{}
}

// NewBus wraps conn for RTSP message exchange and starts its reader
// goroutine. Callers must call Close when finished.
func NewBus(conn net.Conn, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	b := &Bus{
		conn:   conn,
		dec:    NewDecoder(conn),
		log:    log,
		calls:  make(map[uint64]*call),
		doneCh: make(chan struct{}),
	}
	go b.readLoop()
	return b
}

// IsDead reports whether the Bus's reader loop has stopped, matching the
// teacher's rtsp_is_dead naming.
func (b *Bus) IsDead() bool { return b.closed.Load() }

// RemoteAddr returns the underlying connection's remote address, used by
// session negotiation to tell the encoder where to stream to.
func (b *Bus) RemoteAddr() string { return b.conn.RemoteAddr().String() }

// LocalAddr returns the underlying connection's local address.
func (b *Bus) LocalAddr() string { return b.conn.LocalAddr().String() }

// Done returns a channel closed once the Bus's reader loop has exited,
// whether because the connection closed or Close was called.
func (b *Bus) Done() <-chan struct{} { return b.doneCh }

// Close terminates the Bus: the underlying connection is closed, the
// reader goroutine exits, and any pending Calls receive ErrClosed.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := b.conn.Close()

	b.mu.Lock()
	for cookie, c := range b.calls {
		close(c.done)
		delete(b.calls, cookie)
	}
	b.mu.Unlock()

	<-b.doneCh
	return err
}

// AddMatch registers fn to observe incoming messages not taken by the
// call table. It returns a function that removes fn again.
func (b *Bus) AddMatch(fn HandlerFunc) (remove func()) {
	b.mu.Lock()
	b.matches = append(b.matches, fn)
	idx := len(b.matches) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.matches) {
			b.matches[idx] = nil
		}
	}
}

// Send writes m to the connection without waiting for a reply, sealing it
// first if needed. Used for replies and for data packets.
func (b *Bus) Send(m *Message) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if !m.IsSealed() {
		if err := m.Seal(); err != nil {
			return err
		}
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if _, err := b.conn.Write(m.Raw()); err != nil {
		return fmt.Errorf("rtsp: write: %w", err)
	}
	return nil
}

// Call sends a request and blocks until a matching reply arrives, ctx is
// cancelled, or timeout elapses (DefaultCallTimeout if timeout is zero).
// Cancellation removes the pending call by cookie, matching the teacher's
// rtsp_call_async_cancel semantics.
func (b *Bus) Call(ctx context.Context, m *Message, timeout time.Duration) (*Message, error) {
	if m.Type() != TypeRequest {
		return nil, fmt.Errorf("rtsp: Call requires a request message: %w", ErrMalformed)
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	cookie := b.assignCookie(m)
	c := &call{reply: make(chan *Message, 1), done: make(chan struct{})}

	b.mu.Lock()
	b.calls[cookie] = c
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.calls, cookie)
		b.mu.Unlock()
	}()

	if err := b.Send(m); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-c.reply:
		return reply, nil
	case <-c.done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, fmt.Errorf("rtsp: cookie %d: %w", cookie, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// assignCookie assigns the next CSeq value to m by setting its CSeq
// header; it does not seal m. Cookies start at 1 and increment
// monotonically per Bus.
func (b *Bus) assignCookie(m *Message) uint64 {
	b.mu.Lock()
	b.nextSeq++
	cookie := b.nextSeq
	b.mu.Unlock()

	m.setCookie(cookie)
	return cookie
}

// readLoop decodes messages until the connection closes or a fatal error
// occurs, dispatching each to the call table or match handlers.
func (b *Bus) readLoop() {
	defer close(b.doneCh)
	defer b.closed.Store(true)

	for {
		m, err := b.dec.Next()
		if err != nil {
			if !b.closed.Load() {
				b.log.Debug("rtsp bus read loop exiting", slog.Any("error", err))
			}
			return
		}
		b.dispatch(m)
	}
}

func (b *Bus) dispatch(m *Message) {
	if m.Type() == TypeReply {
		if cookie, ok := replyCookie(m); ok {
			b.mu.Lock()
			c, found := b.calls[cookie]
			if found {
				delete(b.calls, cookie)
			}
			b.mu.Unlock()

			if found {
				c.reply <- m
				return
			}
		}
	}

	b.mu.Lock()
	handlers := append([]HandlerFunc(nil), b.matches...)
	b.mu.Unlock()

	for _, fn := range handlers {
		if fn == nil {
			continue
		}
		if fn(b, m) {
			return
		}
	}
}

// replyCookie extracts the CSeq header of a reply as the call-table key.
func replyCookie(m *Message) (uint64, bool) {
	v, ok := m.Header("CSeq")
	if !ok {
		return 0, false
	}
	var cookie uint64
	if _, err := fmt.Sscanf(v, "%d", &cookie); err != nil {
		return 0, false
	}
	return cookie, true
}
