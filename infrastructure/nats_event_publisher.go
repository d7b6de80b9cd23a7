package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"tierledger/events"
)

// SourceService identifies this process in forwarded event envelopes
const SourceService = "tierledger"

// MessagePublisher sends raw bytes to a subject. NATSClient implements it.
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps every forwarded ledger event
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher forwards committed ledger events to NATS JetStream
type NATSEventPublisher struct {
	publisher     MessagePublisher
	subjectMapper *EventSubjectMapper
	metrics       PublishRecorder
}

// PublishRecorder counts forwarded events
type PublishRecorder interface {
	RecordNATSPublish(ctx context.Context, subject string, success bool)
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(publisher MessagePublisher, subjectMapper *EventSubjectMapper, metrics PublishRecorder) *NATSEventPublisher {
	return &NATSEventPublisher{
		publisher:     publisher,
		subjectMapper: subjectMapper,
		metrics:       metrics,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject := p.subjectMapper.MapEventToSubject(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: SourceService,
		Payload:       payload,
	}
	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.publisher.Publish(ctx, subject, envelopeData); err != nil {
		// No stream bound to the subject yet
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		p.record(ctx, subject, false)
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	p.record(ctx, subject, true)

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// Handle is the event bus subscriber. Failures are logged and dropped.
func (p *NATSEventPublisher) Handle(ctx context.Context, event events.Event) {
	if err := p.Publish(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
		}).WithError(err).Error("Failed to forward ledger event")
	}
}

// EnsureLedgerEventStream creates the ledger_events stream with every ledger subject
func EnsureLedgerEventStream(client *NATSClient, subjectMapper *EventSubjectMapper) error {
	return client.EnsureStream(LedgerEventStream, subjectMapper.GetAllSubjects())
}

func (p *NATSEventPublisher) record(ctx context.Context, subject string, success bool) {
	if p.metrics != nil {
		p.metrics.RecordNATSPublish(ctx, subject, success)
	}
}
