package events

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

// Hub delivers events to the owner's live subscriptions (one per open /events socket).
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{} // owner -> subscriptions
}

type Subscription struct {
	UserID string
	C      chan Event
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(userID string) *Subscription {
	s := &Subscription{UserID: userID, C: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[userID]; !ok {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][s] = struct{}{}
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.UserID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.UserID)
		}
	}
	s.once.Do(func() { close(s.C) })
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.Owner] {
		select {
		case s.C <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for s := range set {
			s.once.Do(func() { close(s.C) })
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})
	return nil
}
