package internal

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

type Metrics struct {
	activeConns   atomic.Int64
	logins        atomic.Uint64
	chatRelayed   atomic.Uint64
	filesRelayed  atomic.Uint64
	typingRelayed atomic.Uint64
	broadcasts    atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

func (m *Metrics) IncLogin() {
	m.logins.Add(1)
}

func (m *Metrics) IncChat() {
	m.chatRelayed.Add(1)
}

func (m *Metrics) IncFile() {
	m.filesRelayed.Add(1)
}

func (m *Metrics) IncTyping() {
	m.typingRelayed.Add(1)
}

func (m *Metrics) IncBroadcast() {
	m.broadcasts.Add(1)
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"active_connections":   m.activeConns.Load(),
		"logins_total":         m.logins.Load(),
		"chat_relayed_total":   m.chatRelayed.Load(),
		"files_relayed_total":  m.filesRelayed.Load(),
		"typing_relayed_total": m.typingRelayed.Load(),
		"broadcasts_total":     m.broadcasts.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
