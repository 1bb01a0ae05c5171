package infrastructure

import (
	"context"
	"sync"

	"raffle/domain/events"

	log "github.com/sirupsen/logrus"
)

// LocalEventBus dispatches events to in-process handlers. It is the event
// publisher when no NATS servers are configured.
type LocalEventBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]LocalEventHandler
	inflight sync.WaitGroup
}

// NewLocalEventBus creates a new local event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		handlers: make(map[events.EventType][]LocalEventHandler),
	}
}

// RegisterLocalHandler adds a handler for a specific event type
func (b *LocalEventBus) RegisterLocalHandler(eventType events.EventType, handler LocalEventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on local event bus")
}

// Publish calls every registered handler asynchronously
func (b *LocalEventBus) Publish(event events.Event) error {
	b.mu.RLock()
	handlers := make([]LocalEventHandler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to local handlers")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h LocalEventHandler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()

			if err := h(context.Background(), event); err != nil {
				log.WithFields(log.Fields{
					"eventType":    event.Type(),
					"handlerIndex": handlerIndex,
					"error":        err,
				}).Error("Local event handler failed")
			}
		}(handler, i)
	}
	return nil
}

// Wait blocks until every dispatched handler has returned
func (b *LocalEventBus) Wait() {
	b.inflight.Wait()
}
