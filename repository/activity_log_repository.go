package repository

import (
	"context"
	"fmt"

	"tierledger/database"
	"tierledger/models"
)

// ActivityLogRepository implements the ActivityLogRepository interface
type ActivityLogRepository struct {
	q queryable
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{q: db.Pool}
}

// newActivityLogRepositoryWithTx creates a new activity log repository with a transaction
func newActivityLogRepositoryWithTx(tx queryable) *ActivityLogRepository {
	return &ActivityLogRepository{q: tx}
}

// Create appends an audit entry
func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (account_id, ip, device, game_id, action, remarks)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		entry.AccountID,
		entry.IP,
		entry.Device,
		entry.GameID,
		entry.Action,
		entry.Remarks,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	return nil
}

// ListByAccount returns the most recent entries of an account
func (r *ActivityLogRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.ActivityLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, account_id, ip, device, game_id, action, remarks, created_at
		FROM activity_logs
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity of account %d: %w", accountID, err)
	}
	defer rows.Close()

	var entries []*models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		if err := rows.Scan(&e.ID, &e.AccountID, &e.IP, &e.Device, &e.GameID, &e.Action, &e.Remarks, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
