package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LedgerTxOptions are used for every balance-mutating transaction.
// Read committed plus explicit row locks is enough; rows that are read and
// then written are always fetched with SELECT ... FOR UPDATE.
var LedgerTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// BeginLedgerTx starts a transaction with LedgerTxOptions
func (db *DB) BeginLedgerTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := db.BeginTx(ctx, LedgerTxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// WithTransaction executes a function within a database transaction
// If the function returns an error, the transaction is rolled back
// Otherwise, the transaction is committed
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginLedgerTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				err = fmt.Errorf("rollback failed: %v, original error: %w", rbErr, err)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
