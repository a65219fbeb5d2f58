package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"chatrelay/internal/storage"
)

// ServerName is the sender attached to server-authored messages such as the
// login welcome.
const ServerName = "Server"

// DefaultPort is the TCP port the relay listens on when nothing else is
// configured.
const DefaultPort = 9999

// RelayServer runs the whole server side: accept loop, per-session dispatch,
// broadcast fan-out, history replay, and the command bot. The registry and
// history buffer are the only state shared across sessions.
type RelayServer struct {
	registry *Registry
	history  *History
	presence *PresenceTracker
	metrics  *Metrics
	store    *storage.Store
	maxFrame uint32
	logf     func(format string, args ...interface{})
}

// NewRelayServer builds a relay with default history and frame limits. The
// store may be nil to run without the event log.
func NewRelayServer(store *storage.Store) *RelayServer {
	return NewRelayServerWithConfig(store, DefaultHistorySize, DefaultMaxFrameSize, nil)
}

// NewRelayServerWithConfig builds a relay with explicit limits. Zero values
// for historySize and maxFrame mean the defaults; a nil logf falls back to
// the standard logger.
func NewRelayServerWithConfig(store *storage.Store, historySize int, maxFrame uint32, logf func(string, ...interface{})) *RelayServer {
	if logf == nil {
		logf = log.Printf
	}
	if maxFrame == 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &RelayServer{
		registry: NewRegistry(),
		history:  NewHistory(historySize),
		presence: NewPresenceTracker(),
		metrics:  NewMetrics(),
		store:    store,
		maxFrame: maxFrame,
		logf:     logf,
	}
}

// Registry exposes the live session set, mainly for tests and the gateway.
func (s *RelayServer) Registry() *Registry { return s.registry }

// History exposes the retained message buffer.
func (s *RelayServer) History() *History { return s.history }

// Serve accepts connections until the listener closes or the context is
// cancelled. Each connection gets its own goroutine; a session failing never
// stops the accept loop.
func (s *RelayServer) Serve(ctx context.Context, listener net.Listener) error {
	if ctx != nil {
		go func() {
			<-ctx.Done()
			_ = listener.Close()
		}()
	}
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx != nil && ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.HandleConn(conn)
	}
}

// HandleConn runs one raw TCP connection to completion.
func (s *RelayServer) HandleConn(conn net.Conn) {
	s.attach(&tcpConn{conn: conn, maxFrame: s.maxFrame})
}

// attach registers a transport as a session and runs its read loop in the
// calling goroutine. Sessions are broadcast-visible from accept, matching
// the original protocol's lenient pre-login behavior.
func (s *RelayServer) attach(conn messageConn) {
	sess := newSession(conn, s)
	s.registry.register(sess)
	s.metrics.IncConn()
	s.logf("client connected from %s", conn.RemoteAddr())
	go sess.writePump()
	s.readLoop(sess)
}

func (s *RelayServer) readLoop(sess *session) {
	for {
		msg, err := sess.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				sess.close("peer closed connection")
			case errors.Is(err, ErrMalformedFrame), errors.Is(err, ErrFrameTooLarge):
				s.logf("closing %s: %v", sess.conn.RemoteAddr(), err)
				sess.close(err.Error())
			default:
				sess.close(fmt.Sprintf("read error: %v", err))
			}
			return
		}
		s.dispatch(sess, msg)
	}
}

func (s *RelayServer) dispatch(sess *session, msg Message) {
	switch msg.Kind {
	case KindLogin:
		s.handleLogin(sess, msg)
	case KindChat:
		s.handleChat(msg)
	case KindFile:
		s.handleFile(msg)
	case KindTyping:
		s.metrics.IncTyping()
		s.broadcast(msg)
	}
}

// handleLogin names the session, greets it, and replays history. The replay
// happens under the session's write lock so frames from concurrent
// broadcasts line up behind it instead of cutting into the replayed batch.
func (s *RelayServer) handleLogin(sess *session, msg Message) {
	// a repeated login renames the session; its old name must go offline
	if prev := sess.setName(msg.Sender); prev != "" {
		s.presence.Leave(prev)
	}
	s.presence.Join(msg.Sender)
	s.metrics.IncLogin()
	s.logf("user logged in: %s (%s)", msg.Sender, sess.conn.RemoteAddr())
	s.recordEvent("login", msg.Sender, sess.conn.RemoteAddr())

	welcome := NewChat(ServerName, fmt.Sprintf("Welcome %s to the chat! Type /help for commands.", msg.Sender))
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := sess.conn.WriteMessage(welcome); err != nil {
		return
	}
	for _, old := range s.history.Snapshot() {
		if err := sess.conn.WriteMessage(old); err != nil {
			return
		}
	}
}

func (s *RelayServer) handleChat(msg Message) {
	s.logf("%s: %s", msg.Sender, msg.Content)
	s.history.Append(msg)
	s.metrics.IncChat()
	s.broadcast(msg)

	if strings.HasPrefix(msg.Content, "/") {
		if reply, ok := InterpretCommand(msg.Sender, msg.Content); ok {
			bot := NewChat(BotName, reply)
			s.history.Append(bot)
			s.metrics.IncChat()
			s.broadcast(bot)
		}
	}
}

func (s *RelayServer) handleFile(msg Message) {
	s.logf("%s sent file: %s (%d bytes)", msg.Sender, msg.FileName, len(msg.FileData))
	s.history.Append(msg)
	s.metrics.IncFile()
	s.broadcast(msg)
	s.recordEvent("file", msg.Sender, fmt.Sprintf("%s (%d bytes)", msg.FileName, len(msg.FileData)))
}

// broadcast fans one message out to every live session and counts it.
func (s *RelayServer) broadcast(msg Message) {
	s.metrics.IncBroadcast()
	s.registry.Broadcast(msg)
}

// sessionClosed is the single teardown notification from session.close.
func (s *RelayServer) sessionClosed(sess *session, username, reason string) {
	s.registry.deregister(sess)
	s.metrics.DecConn()
	if username != "" {
		s.presence.Leave(username)
		s.logf("user disconnected: %s (%s)", username, reason)
		s.recordEvent("disconnect", username, reason)
	} else {
		s.logf("client disconnected (%s): %s", sess.conn.RemoteAddr(), reason)
	}
}

func (s *RelayServer) recordEvent(kind, username, detail string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.RecordEvent(ctx, kind, username, detail); err != nil {
		s.logf("event log write failed: %v", err)
	}
}
