package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/models"
)

// BonusRuleRepository implements the BonusRuleRepository interface
type BonusRuleRepository struct {
	q queryable
}

// NewBonusRuleRepository creates a new bonus rule repository
func NewBonusRuleRepository(db *database.DB) *BonusRuleRepository {
	return &BonusRuleRepository{q: db.Pool}
}

// newBonusRuleRepositoryWithTx creates a new bonus rule repository with a transaction
func newBonusRuleRepositoryWithTx(tx queryable) *BonusRuleRepository {
	return &BonusRuleRepository{q: tx}
}

// GetActive returns the newest active rule of the type whose validity window contains at
func (r *BonusRuleRepository) GetActive(ctx context.Context, bonusType models.BonusType, at time.Time) (*models.BonusRule, error) {
	query := `
		SELECT id, name, bonus_type, promo_code, reward_type, reward_amount, roll_required,
		       is_active, valid_from, valid_until, created_at, updated_at
		FROM bonus_rules
		WHERE bonus_type = $1
		  AND is_active
		  AND (valid_from IS NULL OR valid_from <= $2)
		  AND (valid_until IS NULL OR valid_until >= $2)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var rule models.BonusRule
	err := r.q.QueryRow(ctx, query, bonusType, at).Scan(
		&rule.ID,
		&rule.Name,
		&rule.BonusType,
		&rule.PromoCode,
		&rule.RewardType,
		&rule.RewardAmount,
		&rule.RollRequired,
		&rule.IsActive,
		&rule.ValidFrom,
		&rule.ValidUntil,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active %s rule: %w", bonusType, err)
	}
	return &rule, nil
}

// Create inserts a bonus rule
func (r *BonusRuleRepository) Create(ctx context.Context, rule *models.BonusRule) error {
	query := `
		INSERT INTO bonus_rules (name, bonus_type, promo_code, reward_type, reward_amount,
		                         roll_required, is_active, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		rule.Name,
		rule.BonusType,
		rule.PromoCode,
		rule.RewardType,
		rule.RewardAmount,
		rule.RollRequired,
		rule.IsActive,
		rule.ValidFrom,
		rule.ValidUntil,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bonus rule: %w", err)
	}
	return nil
}
