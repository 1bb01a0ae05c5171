package infrastructure

import (
	"fmt"

	"raffle/domain/events"
)

const (
	SubjectEntryAccepted  = "lottery.entry.accepted"
	SubjectDrawRequested  = "lottery.draw.requested"
	SubjectWinnerSelected = "lottery.winner.selected"

	// DomainEventStream holds every lottery domain event subject
	DomainEventStream = "lottery_events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeEntryAccepted:
		return SubjectEntryAccepted
	case events.EventTypeDrawRequested:
		return SubjectDrawRequested
	case events.EventTypeWinnerSelected:
		return SubjectWinnerSelected
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case SubjectEntryAccepted:
		return events.EventTypeEntryAccepted
	case SubjectDrawRequested:
		return events.EventTypeDrawRequested
	case SubjectWinnerSelected:
		return events.EventTypeWinnerSelected
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		SubjectEntryAccepted,
		SubjectDrawRequested,
		SubjectWinnerSelected,
	}
}
