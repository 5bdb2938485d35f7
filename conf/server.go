// Package conf implements the device's configuration channel: a TCP endpoint
// that accepts one client at a time, reads a single fixed-width interval
// value, applies it, and closes the connection.
package conf

import (
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/sarchlab/pacer/reactor"
)

// intervalWireSize is the exact number of bytes a client must send: one
// 32-bit unsigned interval value in the host's native byte order.
const intervalWireSize = 4

// An IntervalSetter receives the interval carried by a completed
// configuration update.
type IntervalSetter interface {
	SetInterval(v uint32)
}

// A Server is the listening side of the configuration channel. Readiness
// callbacks run on the dispatcher goroutine; Close may run on any goroutine,
// so the connection state is guarded by a lock.
type Server struct {
	port       int
	target     IntervalSetter
	dispatcher *reactor.Dispatcher

	mu     sync.Mutex
	ln     net.Listener
	closed bool

	// Active connection, nil when no client is connected. Only one client
	// is served at a time; extra clients are turned away at accept.
	conn net.Conn
	buf  []byte
}

// NewServer creates a Server that applies updates to target. Port 0 picks a
// free port.
func NewServer(
	port int,
	target IntervalSetter,
	dispatcher *reactor.Dispatcher,
) *Server {
	return &Server{
		port:       port,
		target:     target,
		dispatcher: dispatcher,
	}
}

// Listen binds the endpoint and registers accept readiness with the
// dispatcher. A bind failure is fatal to device attach and is returned as is.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.dispatcher.WatchAccept(ln, s.onAcceptReady)

	return nil
}

// Addr returns the address the server is listening on. It is only valid
// after Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ln.Addr().String()
}

// Close shuts the listener and the active connection, if any. No connection
// adopted by a still-queued accept callback can outlive Close.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	if conn != nil {
		conn.Close()
	}
}

func (s *Server) onAcceptReady(conn net.Conn) {
	s.mu.Lock()
	if s.closed || s.conn != nil {
		s.mu.Unlock()
		conn.Close()
		return
	}

	s.conn = conn
	s.buf = s.buf[:0]
	s.mu.Unlock()

	s.dispatcher.WatchRead(conn, s.onDataReady, s.onClosed)
}

// onDataReady buffers incoming bytes until a full interval value arrives,
// then applies it and closes the connection. The channel is single-shot per
// connection: bytes beyond the first value are never reinterpreted as a
// second update.
func (s *Server) onDataReady(conn net.Conn, data []byte) {
	s.mu.Lock()
	if conn != s.conn {
		s.mu.Unlock()
		return
	}

	s.buf = append(s.buf, data...)
	if len(s.buf) < intervalWireSize {
		s.mu.Unlock()
		return
	}

	v := binary.NativeEndian.Uint32(s.buf[:intervalWireSize])
	s.conn = nil
	s.mu.Unlock()

	s.target.SetInterval(v)
	log.Printf("conf: received new interval %d", v)

	conn.Close()
}

// onClosed drops a connection that ended before a full value arrived. No
// update is applied.
func (s *Server) onClosed(conn net.Conn) {
	s.mu.Lock()
	if conn != s.conn {
		s.mu.Unlock()
		return
	}

	s.conn = nil
	s.mu.Unlock()

	conn.Close()
}
