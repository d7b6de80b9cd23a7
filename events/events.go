package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChanged      EventType = "balance_changed"
	EventTypeRequestProcessed    EventType = "request_processed"
	EventTypeSettlementCompleted EventType = "settlement_completed"
	EventTypeRoundSettled        EventType = "round_settled"
	EventTypeAccountCreated      EventType = "account_created"
	EventTypeMessageCreated      EventType = "message_created"
)

// AllEventTypes lists every event type emitted by the ledger
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeBalanceChanged,
		EventTypeRequestProcessed,
		EventTypeSettlementCompleted,
		EventTypeRoundSettled,
		EventTypeAccountCreated,
		EventTypeMessageCreated,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangedEvent is emitted once per committed ledger leg
type BalanceChangedEvent struct {
	AccountID       int64                  `json:"account_id"`
	RefID           uuid.UUID              `json:"ref_id"`
	Wallet          models.Wallet          `json:"wallet"`
	Action          models.ActionType      `json:"action"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal        `json:"amount"`
	BalanceBefore   decimal.Decimal        `json:"balance_before"`
	BalanceAfter    decimal.Decimal        `json:"balance_after"`
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

// RequestProcessedEvent is emitted when a request leaves the pending state
type RequestProcessedEvent struct {
	Kind      models.RequestKind   `json:"kind"`
	RequestID int64                `json:"request_id"`
	AccountID int64                `json:"account_id"`
	ActorID   int64                `json:"actor_id"`
	Status    models.RequestStatus `json:"status"`
	Amount    decimal.Decimal      `json:"amount"`
}

func (e RequestProcessedEvent) Type() EventType {
	return EventTypeRequestProcessed
}

// SettlementCompletedEvent is emitted after a Master's balance is swept to its Super
type SettlementCompletedEvent struct {
	SuperID   int64           `json:"super_id"`
	MasterID  int64           `json:"master_id"`
	Amount    decimal.Decimal `json:"amount"`
	PLCleared decimal.Decimal `json:"pl_cleared"`
}

func (e SettlementCompletedEvent) Type() EventType {
	return EventTypeSettlementCompleted
}

// RoundSettledEvent is emitted for every accepted provider callback
type RoundSettledEvent struct {
	AccountID   int64           `json:"account_id"`
	Round       string          `json:"round"`
	GameUID     string          `json:"game_uid"`
	BetAmount   decimal.Decimal `json:"bet_amount"`
	WinAmount   decimal.Decimal `json:"win_amount"`
	WalletAfter decimal.Decimal `json:"wallet_after"`
	MasterID    *int64          `json:"master_id,omitempty"`
	PLDelta     decimal.Decimal `json:"pl_delta"`
	Replay      bool            `json:"replay"`
}

func (e RoundSettledEvent) Type() EventType {
	return EventTypeRoundSettled
}

// AccountCreatedEvent is emitted for admin-created and self-registered accounts
type AccountCreatedEvent struct {
	AccountID int64       `json:"account_id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	ParentID  *int64      `json:"parent_id,omitempty"`
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// MessageCreatedEvent carries a persisted message to the broadcaster
type MessageCreatedEvent struct {
	MessageID  int64     `json:"message_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e MessageCreatedEvent) Type() EventType {
	return EventTypeMessageCreated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every ledger event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so a slow subscriber never blocks a request
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event on transactional bus")
	b.pending = append(b.pending, e)
}

// Pending returns the number of queued events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Subscribers outlive the request, so they never see its context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}

	log.WithField("flushed", len(b.pending)).Debug("Transactional bus flushed")
	b.pending = nil
	return nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
