package rtsp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// ConnHandler is invoked once per accepted RTSP TCP connection, with a
// Bus already wrapped around it. Handlers normally run until the Bus's
// Done channel closes and must not retain conn after returning.
type ConnHandler func(conn net.Conn, bus *Bus)

// Serve accepts connections on ln until it is closed, dispatching each
// to handler on its own goroutine. Serve blocks until ln.Accept returns
// an error: it returns nil once ln has been closed, and the wrapped
// Accept error otherwise.
func Serve(ln net.Listener, log *slog.Logger, handler ConnHandler) error {
	if log == nil {
		log = slog.Default()
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("rtsp: accept: %w", err)
		}

		bus := NewBus(conn, log)
		go handler(conn, bus)
	}
}
