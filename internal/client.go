package internal

import (
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// TypingDebounce is the minimum gap between typing notifications sent by
	// one client.
	TypingDebounce = 2 * time.Second

	// TypingIndicatorTTL is how long the UI shows "is typing" after the last
	// typing receipt.
	TypingIndicatorTTL = 3 * time.Second

	// MaxSendFileSize caps outbound file transfers on the client side.
	MaxSendFileSize = 5 << 20

	dialTimeout = 5 * time.Second
)

// ErrNotConnected is returned by send operations before Connect succeeds or
// after the connection drops.
var ErrNotConnected = errors.New("not connected")

// ErrFileTooLarge rejects outbound files over MaxSendFileSize.
var ErrFileTooLarge = errors.New("file too large to send")

// Events is the collaborator interface the controller drives. The TUI
// implements it; tests substitute their own.
type Events interface {
	ChatMessage(sender, text string, ts time.Time)
	FileOffer(sender, fileName string, data []byte) bool
	TypingIndicator(sender string)
	Disconnected(reason string)
	LoginResult(ok bool, errMsg string)
}

// Controller drives one outbound session: the connect/login handshake, the
// send path with the typing debounce, and the receive loop dispatching to
// Events.
type Controller struct {
	events   Events
	maxFrame uint32
	now      func() time.Time

	mu           sync.Mutex
	conn         net.Conn
	connected    bool
	username     string
	lastTyping   time.Time
	disconnected bool

	writeMu sync.Mutex
}

func NewController(events Events) *Controller {
	return &Controller{
		events:   events,
		maxFrame: DefaultMaxFrameSize,
		now:      time.Now,
	}
}

// Connect dials the relay, sends the login message, and starts the receive
// loop. A dial failure is surfaced through LoginResult and returned; there
// is no retry.
func (c *Controller) Connect(address, username string) error {
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		c.events.LoginResult(false, err.Error())
		return fmt.Errorf("connect %s: %w", address, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.disconnected = false
	c.username = username
	c.lastTyping = time.Time{}
	c.mu.Unlock()

	if err := c.send(NewLogin(username)); err != nil {
		_ = conn.Close()
		c.events.LoginResult(false, err.Error())
		return err
	}
	c.events.LoginResult(true, "")
	go c.receiveLoop(conn)
	return nil
}

// Connected reports whether the session is live.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Username returns the name the session logged in with.
func (c *Controller) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// SendChat relays one chat line. Blank input and a dead connection are both
// silent no-ops, matching the original client.
func (c *Controller) SendChat(text string) error {
	if strings.TrimSpace(text) == "" || !c.Connected() {
		return nil
	}
	return c.send(NewChat(c.Username(), text))
}

// SendFile relays a whole file in a single frame. Only the base name goes on
// the wire.
func (c *Controller) SendFile(fileName string, data []byte) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	if len(data) > MaxSendFileSize {
		return ErrFileTooLarge
	}
	return c.send(NewFile(c.Username(), filepath.Base(fileName), data))
}

// NotifyTyping is called on every local input change and sends at most one
// typing message per debounce window.
func (c *Controller) NotifyTyping() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	now := c.now()
	if now.Sub(c.lastTyping) < TypingDebounce {
		c.mu.Unlock()
		return nil
	}
	c.lastTyping = now
	username := c.username
	c.mu.Unlock()
	return c.send(NewTyping(username))
}

// Close drops the connection; the receive loop notices and fires
// Disconnected.
func (c *Controller) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Controller) send(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(conn, msg)
}

func (c *Controller) receiveLoop(conn net.Conn) {
	for {
		msg, err := ReadFrame(conn, c.maxFrame)
		if err != nil {
			reason := "connection closed"
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				reason = err.Error()
			}
			c.disconnect(conn, reason)
			return
		}
		c.dispatch(msg)
	}
}

func (c *Controller) dispatch(msg Message) {
	switch msg.Kind {
	case KindChat:
		ts := time.Unix(msg.Ts, 0)
		if msg.Ts == 0 {
			ts = c.now()
		}
		c.events.ChatMessage(msg.Sender, msg.Content, ts)
	case KindFile:
		// declining the offer just discards the payload
		_ = c.events.FileOffer(msg.Sender, msg.FileName, msg.FileData)
	case KindTyping:
		if msg.Sender != c.Username() {
			c.events.TypingIndicator(msg.Sender)
		}
	}
}

// disconnect transitions back to the pre-login state exactly once per
// connection.
func (c *Controller) disconnect(conn net.Conn, reason string) {
	c.mu.Lock()
	if c.disconnected || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.disconnected = true
	c.connected = false
	c.conn = nil
	c.mu.Unlock()

	_ = conn.Close()
	c.events.Disconnected(reason)
}
