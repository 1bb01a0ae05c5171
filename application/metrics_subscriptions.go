package application

import (
	"context"
	"fmt"

	"raffle/domain/events"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"
)

// LocalHandlerRegistrar is implemented by the NATS publisher and the local event bus
type LocalHandlerRegistrar interface {
	RegisterLocalHandler(eventType events.EventType, handler infrastructure.LocalEventHandler)
}

// RegisterMetricsSubscriptions records lottery metrics from committed domain events
func RegisterMetricsSubscriptions(registrar LocalHandlerRegistrar, metrics *observability.MetricsProvider) {
	registrar.RegisterLocalHandler(events.EventTypeEntryAccepted, func(ctx context.Context, event events.Event) error {
		metrics.RecordEntryAccepted()
		return nil
	})

	registrar.RegisterLocalHandler(events.EventTypeDrawRequested, func(ctx context.Context, event events.Event) error {
		metrics.RecordDrawRequested()
		return nil
	})

	registrar.RegisterLocalHandler(events.EventTypeWinnerSelected, func(ctx context.Context, event events.Event) error {
		selected, ok := event.(events.WinnerSelectedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T for %s", event, event.Type())
		}
		metrics.RecordWinnerSelected(selected.PlayerCount)
		return nil
	})
}
