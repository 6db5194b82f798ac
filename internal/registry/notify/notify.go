// Package notify broadcasts registry state transitions.
//
// The stream is an ordered log of committed mutations. Subscribers registered
// before an operation see its event synchronously, in commit order; sinks
// (redis stream, kafka topic, in-memory ring) are fed asynchronously by a
// worker for external indexers and auditors.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType names a registry state transition.
type EventType string

const (
	EventCreated           EventType = "did.created"
	EventDeleted           EventType = "did.deleted"
	EventControllerChanged EventType = "did.controller_changed"
)

// Event is one committed state transition. NewController is set only on
// controller changes.
type Event struct {
	Sequence      uint64
	Type          EventType
	ID            common.Hash
	NewController common.Address
	Timestamp     time.Time
}

// Subscriber receives events synchronously. Implementations must be fast;
// they run on the mutating caller's path.
type Subscriber func(Event)

// Stream is the in-process change log. Emission is serialized so delivery
// order matches commit order.
type Stream struct {
	mu   sync.Mutex
	seq  uint64
	subs []Subscriber
}

func NewStream() *Stream {
	return &Stream{}
}

// Subscribe registers a synchronous observer. Observers attached before an
// operation commits are guaranteed its event; there is no replay for late
// subscribers.
func (s *Stream) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Emit assigns the next sequence number and delivers the event to every
// subscriber in registration order. Called only after the mutation committed.
func (s *Stream) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event.Sequence = s.seq
	for _, fn := range s.subs {
		fn(event)
	}
}

// ChannelSubscriber forwards events into ch for asynchronous consumption by a
// Worker. The send blocks when the channel is full: backpressure instead of
// dropped events.
func ChannelSubscriber(ch chan<- Event) Subscriber {
	return func(event Event) {
		ch <- event
	}
}
