package infrastructure

import (
	"raffle/domain/events"
)

// NoopEventPublisher is an event publisher that does nothing.
// Unit of work factories fall back to it when given a nil publisher.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
