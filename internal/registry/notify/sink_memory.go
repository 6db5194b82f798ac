package notify

import (
	"context"
	"sync"
)

// MemorySink keeps the most recent events in a bounded ring. Used in tests
// and for operational introspection on single-node deployments.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
	limit  int
}

// NewMemorySink constructs a sink retaining at most limit events.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
	return nil
}

// Events returns a snapshot of the retained events in append order.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}
