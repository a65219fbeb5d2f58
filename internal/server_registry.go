package internal

import "sync"

// Registry is the set of live sessions eligible for broadcast. Membership
// changes and snapshots exclude each other; actual deliveries happen outside
// the lock so a stalled peer never blocks the relay.
type Registry struct {
	mu       sync.Mutex
	sessions map[*session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*session]struct{})}
}

func (r *Registry) register(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
}

// deregister is idempotent; shutdown paths can race and both may call it.
func (r *Registry) deregister(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
}

func (r *Registry) snapshot() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Broadcast fans a message out to every registered session, the sender
// included. Each delivery goes through that session's own queue, so a
// failure or stall on one peer only affects that peer.
func (r *Registry) Broadcast(msg Message) {
	for _, s := range r.snapshot() {
		s.enqueue(msg)
	}
}

// Len reports current membership.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
