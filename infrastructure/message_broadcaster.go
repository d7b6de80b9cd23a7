package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"tierledger/events"
	"tierledger/infrastructure/observability"
	"tierledger/models"
)

// MessageNewType is the type field of a broadcast chat message
const MessageNewType = "message.new"

// BroadcastRecorder counts broadcast outcomes
type BroadcastRecorder interface {
	RecordBroadcast(ctx context.Context, outcome string)
}

// ChannelPublisher is the part of the redis client the broadcaster needs
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// BroadcastMessage is the frame listeners on messages_{receiver} receive
type BroadcastMessage struct {
	Type       string    `json:"type"`
	MessageID  int64     `json:"message_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageBroadcaster pushes committed messages to the receiver's pub/sub group.
// Delivery is fire and forget.
type MessageBroadcaster struct {
	backend ChannelPublisher
	metrics BroadcastRecorder
}

// NewMessageBroadcaster creates a broadcaster. A nil backend drops every message.
func NewMessageBroadcaster(backend ChannelPublisher, metrics BroadcastRecorder) *MessageBroadcaster {
	return &MessageBroadcaster{
		backend: backend,
		metrics: metrics,
	}
}

// Handle is subscribed to message_created events
func (b *MessageBroadcaster) Handle(ctx context.Context, event events.Event) {
	e, ok := event.(events.MessageCreatedEvent)
	if !ok {
		return
	}

	fields := log.Fields{
		"messageID":  e.MessageID,
		"receiverID": e.ReceiverID,
	}
	if b.backend == nil {
		log.WithFields(fields).Warn("No broadcast backend configured, dropping message")
		b.record(ctx, observability.OutcomeDropped)
		return
	}

	frame, err := json.Marshal(BroadcastMessage{
		Type:       MessageNewType,
		MessageID:  e.MessageID,
		SenderID:   e.SenderID,
		ReceiverID: e.ReceiverID,
		Message:    e.Body,
		CreatedAt:  e.CreatedAt,
	})
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to encode broadcast message")
		b.record(ctx, observability.OutcomeFailure)
		return
	}

	if err := b.backend.Publish(ctx, models.MessageGroup(e.ReceiverID), frame).Err(); err != nil {
		log.WithFields(fields).WithError(err).Warn("Message broadcast failed")
		b.record(ctx, observability.OutcomeFailure)
		return
	}

	log.WithFields(fields).Debug("Message broadcast")
	b.record(ctx, observability.OutcomeSuccess)
}

func (b *MessageBroadcaster) record(ctx context.Context, outcome string) {
	if b.metrics != nil {
		b.metrics.RecordBroadcast(ctx, outcome)
	}
}
