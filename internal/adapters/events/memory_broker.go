package events

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"sync"
)

var (
	_ ports.EventPublisher  = (*MemoryBroker)(nil)
	_ ports.EventSubscriber = (*MemoryBroker)(nil)
)

// MemoryBroker fans route events out to in-process subscribers.
// Slow subscribers miss events rather than block publishers.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[chan domain.RouteEvent]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[chan domain.RouteEvent]struct{}{}}
}

func (b *MemoryBroker) Subscribe(ctx context.Context) (<-chan domain.RouteEvent, func(), error) {
	ch := make(chan domain.RouteEvent, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (b *MemoryBroker) Publish(ctx context.Context, evt domain.RouteEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}
