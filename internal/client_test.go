package internal

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// eventRecorder captures controller callbacks for assertions.
type eventRecorder struct {
	mu          sync.Mutex
	chats       []string
	typing      []string
	offers      []string
	offerData   []byte
	acceptFiles bool
	disconnects []string
	loginOK     []bool
}

func (r *eventRecorder) ChatMessage(sender, text string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, sender+": "+text)
}

func (r *eventRecorder) FileOffer(sender, fileName string, data []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers = append(r.offers, sender+"/"+fileName)
	r.offerData = append([]byte(nil), data...)
	return r.acceptFiles
}

func (r *eventRecorder) TypingIndicator(sender string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing = append(r.typing, sender)
}

func (r *eventRecorder) Disconnected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, reason)
}

func (r *eventRecorder) LoginResult(ok bool, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loginOK = append(r.loginOK, ok)
}

func (r *eventRecorder) snapshot() eventRecorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return eventRecorder{
		chats:       append([]string(nil), r.chats...),
		typing:      append([]string(nil), r.typing...),
		offers:      append([]string(nil), r.offers...),
		offerData:   append([]byte(nil), r.offerData...),
		disconnects: append([]string(nil), r.disconnects...),
		loginOK:     append([]bool(nil), r.loginOK...),
	}
}

// pipedController wires a controller to one end of an in-memory pipe,
// skipping the TCP dial.
func pipedController(rec *eventRecorder) (*Controller, net.Conn, net.Conn) {
	clientEnd, serverEnd := net.Pipe()
	c := NewController(rec)
	c.conn = clientEnd
	c.connected = true
	c.username = "alice"
	return c, clientEnd, serverEnd
}

// collectFrames drains frames from conn into a channel.
func collectFrames(conn net.Conn) <-chan Message {
	out := make(chan Message, 16)
	go func() {
		defer close(out)
		for {
			msg, err := ReadFrame(conn, DefaultMaxFrameSize)
			if err != nil {
				return
			}
			out <- msg
		}
	}()
	return out
}

func expectFrame(t *testing.T, frames <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-frames:
		if !ok {
			t.Fatalf("frame stream closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a frame")
		return Message{}
	}
}

func expectNoFrame(t *testing.T, frames <-chan Message) {
	t.Helper()
	select {
	case msg := <-frames:
		t.Fatalf("unexpected frame %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTypingDebounce(t *testing.T) {
	rec := &eventRecorder{}
	c, clientEnd, serverEnd := pipedController(rec)
	defer clientEnd.Close()
	defer serverEnd.Close()

	clock := time.Now()
	c.now = func() time.Time { return clock }
	frames := collectFrames(serverEnd)

	if err := c.NotifyTyping(); err != nil {
		t.Fatalf("NotifyTyping: %v", err)
	}
	if msg := expectFrame(t, frames); msg.Kind != KindTyping || msg.Sender != "alice" {
		t.Fatalf("first typing frame was %+v", msg)
	}

	// within the window: both suppressed
	clock = clock.Add(500 * time.Millisecond)
	_ = c.NotifyTyping()
	clock = clock.Add(1400 * time.Millisecond)
	_ = c.NotifyTyping()
	expectNoFrame(t, frames)

	// past the window: one more send
	clock = clock.Add(200 * time.Millisecond)
	_ = c.NotifyTyping()
	if msg := expectFrame(t, frames); msg.Kind != KindTyping {
		t.Fatalf("second typing frame was %+v", msg)
	}
}

func TestReceiveDispatch(t *testing.T) {
	rec := &eventRecorder{acceptFiles: true}
	c, clientEnd, serverEnd := pipedController(rec)
	go c.receiveLoop(clientEnd)

	writeMessage(t, serverEnd, NewChat("bob", "hello"))
	writeMessage(t, serverEnd, NewTyping("alice")) // self, must be suppressed
	writeMessage(t, serverEnd, NewTyping("bob"))
	writeMessage(t, serverEnd, NewFile("bob", "pic.png", []byte{0xde, 0xad}))
	_ = serverEnd.Close()

	waitFor(t, "dispatch to settle", func() bool {
		s := rec.snapshot()
		return len(s.chats) == 1 && len(s.typing) == 1 && len(s.offers) == 1 && len(s.disconnects) == 1
	})
	s := rec.snapshot()
	if s.chats[0] != "bob: hello" {
		t.Errorf("chat: %q", s.chats[0])
	}
	if s.typing[0] != "bob" {
		t.Errorf("typing from %q, self-typing not suppressed?", s.typing[0])
	}
	if s.offers[0] != "bob/pic.png" || !bytes.Equal(s.offerData, []byte{0xde, 0xad}) {
		t.Errorf("offer: %q (%d bytes)", s.offers[0], len(s.offerData))
	}
	if c.Connected() {
		t.Error("controller still reports connected after stream end")
	}
}

func TestDisconnectFiresOnce(t *testing.T) {
	rec := &eventRecorder{}
	c, clientEnd, serverEnd := pipedController(rec)
	go c.receiveLoop(clientEnd)

	_ = serverEnd.Close()
	c.Close() // racing close paths must not double-report

	waitFor(t, "disconnect callback", func() bool { return len(rec.snapshot().disconnects) > 0 })
	time.Sleep(50 * time.Millisecond)
	if n := len(rec.snapshot().disconnects); n != 1 {
		t.Fatalf("Disconnected fired %d times", n)
	}
}

func TestSendChatNoOps(t *testing.T) {
	rec := &eventRecorder{}
	c := NewController(rec)
	if err := c.SendChat("hello"); err != nil {
		t.Fatalf("disconnected SendChat should be a no-op, got %v", err)
	}

	c2, clientEnd, serverEnd := pipedController(rec)
	defer clientEnd.Close()
	defer serverEnd.Close()
	frames := collectFrames(serverEnd)
	if err := c2.SendChat("   \t  "); err != nil {
		t.Fatalf("blank SendChat: %v", err)
	}
	expectNoFrame(t, frames)
}

func TestSendFileUsesBaseName(t *testing.T) {
	rec := &eventRecorder{}
	c, clientEnd, serverEnd := pipedController(rec)
	defer clientEnd.Close()
	defer serverEnd.Close()
	frames := collectFrames(serverEnd)

	if err := c.SendFile("/tmp/some/dir/report.pdf", []byte("pdf")); err != nil {
		t.Fatalf("SendFile: %v", err)
	}
	msg := expectFrame(t, frames)
	if msg.Kind != KindFile || msg.FileName != "report.pdf" {
		t.Fatalf("file frame was %+v", msg)
	}

	huge := make([]byte, MaxSendFileSize+1)
	if err := c.SendFile("big.bin", huge); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestConnectFailureSurfacesLoginResult(t *testing.T) {
	// grab a port with no listener on it
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	rec := &eventRecorder{}
	c := NewController(rec)
	if err := c.Connect(addr, "alice"); err == nil {
		t.Fatal("expected connect error")
	}
	s := rec.snapshot()
	if len(s.loginOK) != 1 || s.loginOK[0] {
		t.Fatalf("login results: %v", s.loginOK)
	}
	if c.Connected() {
		t.Fatal("controller reports connected after a failed dial")
	}
}

func TestConnectSendsLogin(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan Message, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if msg, err := ReadFrame(conn, DefaultMaxFrameSize); err == nil {
			accepted <- msg
		}
	}()

	rec := &eventRecorder{}
	c := NewController(rec)
	if err := c.Connect(listener.Addr().String(), "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	select {
	case msg := <-accepted:
		if msg.Kind != KindLogin || msg.Sender != "alice" {
			t.Fatalf("handshake sent %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the login frame")
	}
	s := rec.snapshot()
	if len(s.loginOK) != 1 || !s.loginOK[0] {
		t.Fatalf("login results: %v", s.loginOK)
	}
}
