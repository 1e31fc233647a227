package connector

import (
	"sync"
	"time"
)

// SubscriptionSet is the bookkeeping base for push-style connectors. It
// tracks active subscriptions; data arrives asynchronously and is emitted
// through the same Base.Emit path the polling base uses.
//
// Thread Safety: all methods are safe for concurrent use.
type SubscriptionSet struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

// NewSubscriptionSet creates an empty subscription set.
func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{
		subs: make(map[string]Subscription),
	}
}

// Add records an active subscription, replacing any prior entry with the
// same ID. The creation time is stamped if unset.
func (s *SubscriptionSet) Add(sub Subscription) {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.subs[sub.ID] = sub
	s.mu.Unlock()
}

// Remove drops a subscription by ID. Removing an unknown ID is a no-op.
func (s *SubscriptionSet) Remove(id string) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// Get returns the subscription with the given ID, if present.
func (s *SubscriptionSet) Get(id string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	return sub, ok
}

// List returns a point-in-time immutable copy of the active subscriptions.
func (s *SubscriptionSet) List() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

// Len returns the number of active subscriptions.
func (s *SubscriptionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Clear removes all subscriptions, returning the removed entries.
func (s *SubscriptionSet) Clear() []Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	s.subs = make(map[string]Subscription)
	return out
}
