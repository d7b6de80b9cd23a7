package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/models"
)

const gameLogColumns = `
	id, account_id, game_id, provider_id, wallet, type, round, bet_amount, win_amount,
	lose_amount, before_balance, after_balance, provider_raw_data, created_at, updated_at`

// GameLogRepository implements the GameLogRepository interface
type GameLogRepository struct {
	q queryable
}

// NewGameLogRepository creates a new game log repository
func NewGameLogRepository(db *database.DB) *GameLogRepository {
	return &GameLogRepository{q: db.Pool}
}

// newGameLogRepositoryWithTx creates a new game log repository with a transaction
func newGameLogRepositoryWithTx(tx queryable) *GameLogRepository {
	return &GameLogRepository{q: tx}
}

func scanGameLog(row pgx.Row) (*models.GameLog, error) {
	var g models.GameLog
	err := row.Scan(
		&g.ID,
		&g.AccountID,
		&g.GameID,
		&g.ProviderID,
		&g.Wallet,
		&g.Type,
		&g.Round,
		&g.BetAmount,
		&g.WinAmount,
		&g.LoseAmount,
		&g.BeforeBalance,
		&g.AfterBalance,
		&g.ProviderRawData,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func rawData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

// GetForUpdate retrieves the log of a round and holds its row lock
func (r *GameLogRepository) GetForUpdate(ctx context.Context, accountID int64, round string) (*models.GameLog, error) {
	log, err := scanGameLog(r.q.QueryRow(ctx,
		`SELECT `+gameLogColumns+` FROM game_logs WHERE account_id = $1 AND round = $2 FOR UPDATE`,
		accountID, round))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game log %d/%s: %w", accountID, round, err)
	}
	return log, nil
}

// Create inserts a round log
func (r *GameLogRepository) Create(ctx context.Context, log *models.GameLog) error {
	query := `
		INSERT INTO game_logs (account_id, game_id, provider_id, wallet, type, round, bet_amount,
		                       win_amount, lose_amount, before_balance, after_balance, provider_raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		log.AccountID,
		log.GameID,
		log.ProviderID,
		log.Wallet,
		log.Type,
		log.Round,
		log.BetAmount,
		log.WinAmount,
		log.LoseAmount,
		log.BeforeBalance,
		log.AfterBalance,
		rawData(log.ProviderRawData),
	).Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game log %d/%s: %w", log.AccountID, log.Round, err)
	}
	return nil
}

// Update overwrites the result fields of a replayed round
func (r *GameLogRepository) Update(ctx context.Context, log *models.GameLog) error {
	query := `
		UPDATE game_logs
		SET type = $2, bet_amount = $3, win_amount = $4, lose_amount = $5,
		    after_balance = $6, provider_raw_data = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		log.ID,
		log.Type,
		log.BetAmount,
		log.WinAmount,
		log.LoseAmount,
		log.AfterBalance,
		rawData(log.ProviderRawData),
	).Scan(&log.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("game log %d not found", log.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update game log %d: %w", log.ID, err)
	}
	return nil
}

// ListByAccount returns the most recent rounds of an account
func (r *GameLogRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.GameLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+gameLogColumns+`
		FROM game_logs
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list game logs of account %d: %w", accountID, err)
	}
	defer rows.Close()

	var logs []*models.GameLog
	for rows.Next() {
		log, err := scanGameLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
