package internal

import (
	"sort"
	"sync"
)

// PresenceTracker counts live sessions per display name. Nothing stops two
// connections from using the same name; the count keeps a name online until
// its last session drops.
type PresenceTracker struct {
	mu     sync.Mutex
	online map[string]int
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[string]int)}
}

func (p *PresenceTracker) Join(username string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[username]++
	return p.online[username]
}

func (p *PresenceTracker) Leave(username string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if count, ok := p.online[username]; ok {
		if count <= 1 {
			delete(p.online, username)
			return 0
		}
		p.online[username] = count - 1
		return p.online[username]
	}
	return 0
}

func (p *PresenceTracker) Online(username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[username] > 0
}

// OnlineUsers returns the current names in stable order.
func (p *PresenceTracker) OnlineUsers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	users := make([]string, 0, len(p.online))
	for name := range p.online {
		users = append(users, name)
	}
	sort.Strings(users)
	return users
}

func (p *PresenceTracker) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.online)
}
