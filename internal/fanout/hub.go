package fanout

import (
	"context"
	"sync"

	"private-chat/internal/protocol"
)

// Hub is an in-process Fabric
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[string]Subscriber
	closed bool
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[string]Subscriber)}
}

func (h *Hub) Subscribe(_ context.Context, group string, sub Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	subs, ok := h.groups[group]
	if !ok {
		subs = make(map[string]Subscriber)
		h.groups[group] = subs
	}
	subs[sub.ID()] = sub
	return nil
}

func (h *Hub) Unsubscribe(_ context.Context, group string, sub Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.groups[group]; ok {
		delete(subs, sub.ID())
		if len(subs) == 0 {
			delete(h.groups, group)
		}
	}
	return nil
}

func (h *Hub) Publish(_ context.Context, group string, ev protocol.Event) error {
	frame, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	return h.deliver(group, frame)
}

// deliver hands frame to a snapshot of group subscribers, outside of the lock
func (h *Hub) deliver(group string, frame []byte) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	subs := make([]Subscriber, 0, len(h.groups[group]))
	for _, s := range h.groups[group] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.Deliver(frame)
	}
	return nil
}

// Len returns the number of subscribers of group
func (h *Hub) Len(group string) int {
	h.mu.RLock()
	n := len(h.groups[group])
	h.mu.RUnlock()
	return n
}

func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	h.groups = make(map[string]map[string]Subscriber)
	h.mu.Unlock()
	return nil
}
