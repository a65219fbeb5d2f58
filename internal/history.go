package internal

import "sync"

// DefaultHistorySize is how many chat/file messages the relay keeps for
// replay to late joiners.
const DefaultHistorySize = 100

// History is a bounded FIFO of previously broadcast messages, backed by a
// ring buffer so appends stay O(1) once the buffer is full. Typing and login
// traffic never lands here.
type History struct {
	mu       sync.Mutex
	buf      []Message
	head     int
	size     int
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		buf:      make([]Message, capacity),
		capacity: capacity,
	}
}

// Append records a message at the tail, evicting the oldest entry once the
// buffer is full.
func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[(h.head+h.size)%h.capacity] = msg
	if h.size < h.capacity {
		h.size++
		return
	}
	h.head = (h.head + 1) % h.capacity
}

// Snapshot returns a copy of the current contents in insertion order, safe
// to iterate while appends continue elsewhere.
func (h *History) Snapshot() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, h.size)
	for i := range out {
		out[i] = h.buf[(h.head+i)%h.capacity]
	}
	return out
}

// Len reports the current number of retained messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}
