package service

import (
	"context"
	"sync"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
)

var _ fixer.Observer = (*Hub)(nil)

// Hub fans fix session events out to subscribers of a project key. Slow
// subscribers lose events rather than stalling the session.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan fixer.Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 64
	}
	return &Hub{subs: map[string]map[chan fixer.Event]struct{}{}, buffer: buffer}
}

func (h *Hub) OnTransition(_ context.Context, ev fixer.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.ProjectKey] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of events for key. It is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, key string) <-chan fixer.Event {
	ch := make(chan fixer.Event, h.buffer)
	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = map[chan fixer.Event]struct{}{}
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[key], ch)
		if len(h.subs[key]) == 0 {
			delete(h.subs, key)
		}
		h.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Subscribers reports how many subscriptions key has.
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}
