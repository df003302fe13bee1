package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type subscription struct {
	name   string
	handle func(ctx context.Context, e Event) error
}

// Bus dispatches events to named subscribers. Each handler runs in its own
// guard: an error or panic is logged and never reaches the publisher or the
// other handlers of the same event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{subs: make(map[string][]subscription), logger: logger}
}

// Subscribe registers h for events of type E under a name used in logs.
func Subscribe[E Event](b *Bus, name string, h func(ctx context.Context, e E) error) {
	var zero E
	key := zero.EventName()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[key] = append(b.subs[key], subscription{
		name: name,
		handle: func(ctx context.Context, e Event) error {
			typed, ok := e.(E)
			if !ok {
				return fmt.Errorf("unexpected payload %T for %s", e, key)
			}
			return h(ctx, typed)
		},
	})
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[e.EventName()]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatch(ctx, sub, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, sub subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", e.EventName()),
				zap.String("subscriber", sub.name),
				zap.Any("panic", r),
			)
		}
	}()

	if err := sub.handle(ctx, e); err != nil {
		b.logger.Error("event handler failed",
			zap.String("event", e.EventName()),
			zap.String("subscriber", sub.name),
			zap.Error(err),
		)
	}
}

// Subscribers lists subscriber names for an event, in registration order.
func (b *Bus) Subscribers(eventName string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.subs[eventName]))
	for _, s := range b.subs[eventName] {
		names = append(names, s.name)
	}
	return names
}
