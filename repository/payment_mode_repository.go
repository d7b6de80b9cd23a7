package repository

import (
	"context"
	"fmt"

	"tierledger/database"
	"tierledger/models"
)

// PaymentModeRepository implements the PaymentModeRepository interface
type PaymentModeRepository struct {
	q queryable
}

// NewPaymentModeRepository creates a new payment mode repository
func NewPaymentModeRepository(db *database.DB) *PaymentModeRepository {
	return &PaymentModeRepository{q: db.Pool}
}

// newPaymentModeRepositoryWithTx creates a new payment mode repository with a transaction
func newPaymentModeRepositoryWithTx(tx queryable) *PaymentModeRepository {
	return &PaymentModeRepository{q: tx}
}

// HasApproved reports whether the account has an approved payment mode
func (r *PaymentModeRepository) HasApproved(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_modes WHERE account_id = $1 AND status = $2)`,
		accountID, models.PaymentModeApproved,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check payment modes of account %d: %w", accountID, err)
	}
	return exists, nil
}

// Create inserts a payment mode
func (r *PaymentModeRepository) Create(ctx context.Context, mode *models.PaymentMode) error {
	if mode.Status == "" {
		mode.Status = models.PaymentModePending
	}
	query := `
		INSERT INTO payment_modes (account_id, name, type, wallet_phone, bank_name, bank_branch,
		                           bank_account_no, bank_account_holder_name, status, reject_reason, action_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		mode.AccountID,
		mode.Name,
		mode.Type,
		mode.WalletPhone,
		mode.BankName,
		mode.BankBranch,
		mode.BankAccountNo,
		mode.BankAccountHolderName,
		mode.Status,
		mode.RejectReason,
		mode.ActionBy,
	).Scan(&mode.ID, &mode.CreatedAt, &mode.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment mode: %w", err)
	}
	return nil
}
