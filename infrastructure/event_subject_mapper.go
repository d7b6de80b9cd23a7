package infrastructure

import (
	"fmt"

	"tierledger/events"
)

// LedgerEventStream is the JetStream stream holding every forwarded ledger event
const LedgerEventStream = "ledger_events"

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChanged:      "ledger.balance.changed",
	events.EventTypeRequestProcessed:    "ledger.request.processed",
	events.EventTypeSettlementCompleted: "ledger.settlement.completed",
	events.EventTypeRoundSettled:        "ledger.round.settled",
	events.EventTypeAccountCreated:      "ledger.account.created",
	events.EventTypeMessageCreated:      "ledger.message.created",
}

// EventSubjectMapper handles mapping between ledger events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("ledger.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects this service publishes to, in event type order
func (m *EventSubjectMapper) GetAllSubjects() []string {
	all := events.AllEventTypes()
	subjects := make([]string, 0, len(all))
	for _, eventType := range all {
		subjects = append(subjects, eventSubjects[eventType])
	}
	return subjects
}
