package internal

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// sendQueueSize is the per-session outbound buffer. A peer that falls this
// far behind gets dropped rather than stalling the relay.
const sendQueueSize = 256

// messageConn abstracts one framed transport so TCP sessions and websocket
// gateway sessions share the same lifecycle code.
type messageConn interface {
	ReadMessage() (Message, error)
	WriteMessage(Message) error
	Close() error
	RemoteAddr() string
}

// tcpConn speaks the native length-prefixed protocol over a raw socket.
type tcpConn struct {
	conn     net.Conn
	maxFrame uint32
}

func (t *tcpConn) ReadMessage() (Message, error)  { return ReadFrame(t.conn, t.maxFrame) }
func (t *tcpConn) WriteMessage(msg Message) error { return WriteFrame(t.conn, msg) }
func (t *tcpConn) Close() error                   { return t.conn.Close() }
func (t *tcpConn) RemoteAddr() string             { return t.conn.RemoteAddr().String() }

// wsConn carries the same JSON envelope as websocket text frames; the
// websocket layer already does its own length framing.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadMessage() (Message, error) {
	for {
		messageType, payload, err := w.conn.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if err := msg.Validate(); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return msg, nil
	}
}

func (w *wsConn) WriteMessage(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Close() error       { return w.conn.Close() }
func (w *wsConn) RemoteAddr() string { return w.conn.RemoteAddr().String() }

// session owns one connected client: its transport, its outbound queue, and
// its identity once a login arrives. The registry only holds a reference for
// fan-out; the session itself decides when it dies.
type session struct {
	id     string
	conn   messageConn
	server *RelayServer

	send chan Message
	done chan struct{}

	// writeMu serializes every frame on the transport. Login replay holds it
	// across the whole history batch so live broadcasts queue up behind the
	// replay instead of interleaving with it.
	writeMu sync.Mutex

	mu       sync.Mutex
	username string
	closed   bool
}

func newSession(conn messageConn, server *RelayServer) *session {
	return &session{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		send:   make(chan Message, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (s *session) name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// setName records the session's display name and returns the one it replaced.
func (s *session) setName(name string) string {
	s.mu.Lock()
	prev := s.username
	s.username = name
	s.mu.Unlock()
	return prev
}

// enqueue hands a message to the session's writer. It never blocks: a full
// queue means the peer stopped reading, and the session is dropped so one
// slow client cannot hold up delivery to everyone else.
func (s *session) enqueue(msg Message) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- msg:
	default:
		s.server.logf("dropping %s (%s): send queue full", s.name(), s.conn.RemoteAddr())
		s.close("send queue full")
	}
}

// writePump drains the outbound queue onto the transport. One writer per
// session keeps frames whole without holding any shared lock during I/O.
func (s *session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			s.writeMu.Lock()
			err := s.conn.WriteMessage(msg)
			s.writeMu.Unlock()
			if err != nil {
				s.close("write failed")
				return
			}
		}
	}
}

// close tears the session down exactly once: deregisters it, releases the
// transport, and records the departure. Safe to call from any goroutine.
func (s *session) close(reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	username := s.username
	s.mu.Unlock()

	close(s.done)
	_ = s.conn.Close()
	s.server.sessionClosed(s, username, reason)
}
