package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"tierledger/events"
	"tierledger/models"
)

// MaxMessageLength bounds the body of a direct message
const MaxMessageLength = 2000

type messageService struct {
	uowFactory UnitOfWorkFactory
}

// NewMessageService creates a new message service
func NewMessageService(uowFactory UnitOfWorkFactory) MessageService {
	return &messageService{
		uowFactory: uowFactory,
	}
}

// Send stores a message to an account in the sender's scope or to the
// sender's own parent. Delivery to listeners happens after commit.
func (s *messageService) Send(ctx context.Context, senderID, receiverID int64, body string, client models.ClientInfo) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	body = truncate(body, MaxMessageLength)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	accounts := uow.AccountRepository()
	sender, receiver, err := loadActorAndTarget(ctx, accounts, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if sender.ID == receiver.ID {
		return nil, newLedgerError(ErrValidation, "Cannot message yourself.")
	}
	if !sender.IsChildOf(receiver) {
		if err := checkScope(ctx, accounts, sender, receiver); err != nil {
			return nil, err
		}
	}

	msg := &models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Body:       body,
	}
	if err := uow.MessageRepository().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	remarks := fmt.Sprintf("Message to %s", receiver.Username)
	if err := recordActivity(ctx, uow, sender.ID, models.ActivityMessage, client, remarks, nil); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.MessageCreatedEvent{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"messageID":  msg.ID,
		"senderID":   sender.ID,
		"receiverID": receiver.ID,
	}).Info("Message sent")

	return msg, nil
}

// List returns the messages an account sent or received, newest first
func (s *messageService) List(ctx context.Context, accountID int64, limit int) ([]*models.Message, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	messages, err := uow.MessageRepository().ListForAccount(ctx, accountID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
