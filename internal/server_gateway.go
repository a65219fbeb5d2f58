package internal

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	upgradeLimit  = 10
	upgradeWindow = time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the relay has no notion of origin-bound identity, so any origin may join
		return true
	},
}

// Router builds the gateway's HTTP surface: the websocket join endpoint plus
// the operational endpoints. Websocket clients become ordinary registry
// sessions; history replay, broadcast, and the bot all behave exactly as for
// TCP peers.
func (s *RelayServer) Router() http.Handler {
	limiter := NewRateLimiter(upgradeLimit, upgradeWindow)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/join", func(w http.ResponseWriter, req *http.Request) {
		s.serveWS(limiter, w, req)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", s.metrics)
	return r
}

func (s *RelayServer) serveWS(limiter *RateLimiter, w http.ResponseWriter, r *http.Request) {
	if !limiter.Allow(clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	websocketConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("websocket upgrade error: %v", err)
		return
	}
	// attach blocks for the life of the connection; the http handler
	// goroutine doubles as the session's read loop.
	s.attach(&wsConn{conn: websocketConn})
}

func (s *RelayServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"online_users": s.presence.OnlineUsers(),
		"sessions":     s.registry.Len(),
		"history_size": s.history.Len(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
