package events

import (
	"context"
	"log/slog"
	"sync"
)

// InProcBus is an in-process Bus implementation. Handlers run synchronously on
// the emitting goroutine; a panicking handler is recovered and logged so the
// remaining handlers still run.
type InProcBus struct {
	mu       sync.RWMutex
	handlers map[string]map[int64]Handler
	nextID   int64
}

// NewInProcBus creates a new in-process event bus.
func NewInProcBus() *InProcBus {
	return &InProcBus{handlers: make(map[string]map[int64]Handler)}
}

// Subscribe registers a handler for an event.
func (b *InProcBus) Subscribe(event string, handler Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int64]Handler)
	}
	b.nextID++
	id := b.nextID
	b.handlers[event][id] = handler
	slog.Debug("InProcBus handler subscribed", "event", event, "handler_id", id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[event], id)
	}, nil
}

// Emit invokes every handler registered for the event. Handler panics are
// recovered so one failing subscriber cannot abort the others.
func (b *InProcBus) Emit(ctx context.Context, event string, payload any) error {
	b.mu.RLock()
	registered := b.handlers[event]
	handlers := make([]Handler, 0, len(registered))
	for _, h := range registered {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	slog.Debug("InProcBus emitting event", "event", event, "handlers", len(handlers))
	for _, h := range handlers {
		b.invoke(ctx, event, h, payload)
	}
	return nil
}

func (b *InProcBus) invoke(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("InProcBus handler panicked", "event", event, "panic", r)
		}
	}()
	h(ctx, payload)
}
