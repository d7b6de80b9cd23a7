package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/models"
)

const transactionColumns = `
	id, ref_id, account_id, action_type, wallet, transaction_type, amount, status,
	from_account_id, to_account_id, balance_before, balance_after, remarks, created_at`

// TransactionRepository implements the TransactionRepository interface.
// Ledger legs are append-only, so there is no update or delete.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a ledger leg
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			ref_id, account_id, action_type, wallet, transaction_type, amount, status,
			from_account_id, to_account_id, balance_before, balance_after, remarks
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		tx.RefID,
		tx.AccountID,
		tx.ActionType,
		tx.Wallet,
		tx.Type,
		tx.Amount,
		tx.Status,
		tx.FromAccountID,
		tx.ToAccountID,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.Remarks,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction for account %d: %w", tx.AccountID, err)
	}
	return nil
}

// ListByAccount returns the most recent legs of an account
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	txs, err := r.list(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of account %d: %w", accountID, err)
	}
	return txs, nil
}

// ListByRefID returns both legs of a movement
func (r *TransactionRepository) ListByRefID(ctx context.Context, refID uuid.UUID) ([]*models.Transaction, error) {
	txs, err := r.list(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE ref_id = $1
		ORDER BY id`, refID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of ref %s: %w", refID, err)
	}
	return txs, nil
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.RefID,
		&t.AccountID,
		&t.ActionType,
		&t.Wallet,
		&t.Type,
		&t.Amount,
		&t.Status,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.BalanceBefore,
		&t.BalanceAfter,
		&t.Remarks,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
