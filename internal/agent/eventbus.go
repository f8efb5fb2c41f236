package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reactorhq/agent/pkg/models"
)

// Subscriber is the minimal hook interface for observing the agent event
// stream. Implementations must be fast; a slow or blocking subscriber stalls
// every other subscriber and the loop itself, since Emit is synchronous.
type Subscriber interface {
	OnEvent(ctx context.Context, e models.AgentEvent)
}

// SubscriberFunc adapts an ordinary function to a Subscriber.
type SubscriberFunc func(ctx context.Context, e models.AgentEvent)

func (f SubscriberFunc) OnEvent(ctx context.Context, e models.AgentEvent) { f(ctx, e) }

// EventBus is the UI Event Emitter: a pub-sub fan-out of the ordered
// iteration/action/tool lifecycle events in spec.md §6. Sequence numbers are
// monotonic across the lifetime of one bus and assigned at Emit time, not by
// callers, so concurrent producers (main loop and any sub-agent sharing the
// bus) never collide.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	seq         atomic.Uint64
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a subscriber. Subscribers are invoked in registration
// order.
func (b *EventBus) Subscribe(s Subscriber) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// Emit stamps e with the next sequence number and current time, then
// dispatches it to every subscriber synchronously and in order. A panicking
// subscriber is recovered and does not prevent delivery to the rest.
func (b *EventBus) Emit(ctx context.Context, e models.AgentEvent) models.AgentEvent {
	e.Sequence = b.seq.Add(1)
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		dispatchSafely(ctx, s, e)
	}
	return e
}

func dispatchSafely(ctx context.Context, s Subscriber, e models.AgentEvent) {
	defer func() {
		_ = recover()
	}()
	s.OnEvent(ctx, e)
}

// Count returns the number of registered subscribers.
func (b *EventBus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
