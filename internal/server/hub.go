package server

import (
	"sync"
	"sync/atomic"
)

// Hub fans events out to WebSocket subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Subscriber]struct{}
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// Subscriber is one registered listener.
type Subscriber struct {
	events chan Event
	once   sync.Once
}

// Events returns the channel events are delivered on.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.events) })
}

// NewHub returns a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{clients: make(map[*Subscriber]struct{}), buffer: buffer}
}

// Publish delivers e to every subscriber with room for it.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.clients {
		select {
		case s.events <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe registers a new subscriber. The returned channel is closed by
// Unsubscribe or Close.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{events: make(chan Event, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return s
	}
	h.clients[s] = struct{}{}
	return s
}

// Unsubscribe removes s and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		s.close()
	}
}

// Close disconnects every subscriber; later subscribers are closed at once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.clients {
		delete(h.clients, s)
		s.close()
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
