package repository

import (
	"context"
	"fmt"

	"tierledger/database"
	"tierledger/models"
)

// MessageRepository implements the MessageRepository interface
type MessageRepository struct {
	q queryable
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{q: db.Pool}
}

// newMessageRepositoryWithTx creates a new message repository with a transaction
func newMessageRepositoryWithTx(tx queryable) *MessageRepository {
	return &MessageRepository{q: tx}
}

// Create stores a message
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		msg.SenderID, msg.ReceiverID, msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListForAccount returns messages sent or received by the account, newest first
func (r *MessageRepository) ListForAccount(ctx context.Context, accountID int64, limit int) ([]*models.Message, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sender_id, receiver_id, body, created_at
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of account %d: %w", accountID, err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
