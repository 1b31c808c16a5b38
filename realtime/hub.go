// Package realtime fans bus events out to live subscribers such as
// WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"skillforge/core"
)

// Filter narrows what a subscriber receives. Zero values match everything.
type Filter struct {
	User  core.UserID
	Types []core.EventType
}

func (f Filter) match(ev core.Event) bool {
	if f.User != "" && f.User != ev.UserID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == ev.Type {
			return true
		}
	}
	return false
}

type subscriber struct {
	ch     chan core.Event
	filter Filter
}

// Hub is a simple pub/sub for broadcasting events to channels. Slow
// subscribers lose events rather than blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Int64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Subscribe registers a channel receiving every event.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	return h.SubscribeFiltered(buffer, Filter{})
}

// SubscribeFiltered registers a channel receiving events that match f.
func (h *Hub) SubscribeFiltered(buffer int, f Filter) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscriber{ch: ch, filter: f}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber
// buffer was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Broadcast delivers ev to matching subscribers. It has the bus handler
// signature so it can be registered with SubscribeAll.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.match(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
