package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/models"
)

// SettingsRepository implements the SettingsRepository interface over the
// single super_settings row
type SettingsRepository struct {
	q queryable
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{q: db.Pool}
}

// newSettingsRepositoryWithTx creates a new settings repository with a transaction
func newSettingsRepositoryWithTx(tx queryable) *SettingsRepository {
	return &SettingsRepository{q: tx}
}

// Get returns the settings row
func (r *SettingsRepository) Get(ctx context.Context) (*models.SuperSetting, error) {
	query := `
		SELECT id, ggr_coin, game_api_url, game_api_secret, game_api_token, game_api_callback_url,
		       game_api_domain_url, game_api_launch_url, min_withdraw, max_withdraw,
		       min_deposit, max_deposit, exposure_limit, default_master_id, updated_at
		FROM super_settings
		WHERE id = 1
	`
	var s models.SuperSetting
	err := r.q.QueryRow(ctx, query).Scan(
		&s.ID,
		&s.GGRCoin,
		&s.GameAPIURL,
		&s.GameAPISecret,
		&s.GameAPIToken,
		&s.GameAPICallbackURL,
		&s.GameAPIDomainURL,
		&s.GameAPILaunchURL,
		&s.MinWithdraw,
		&s.MaxWithdraw,
		&s.MinDeposit,
		&s.MaxDeposit,
		&s.ExposureLimit,
		&s.DefaultMasterID,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

// Update overwrites the settings row, creating it if it was removed
func (r *SettingsRepository) Update(ctx context.Context, s *models.SuperSetting) error {
	query := `
		INSERT INTO super_settings (id, ggr_coin, game_api_url, game_api_secret, game_api_token,
		                            game_api_callback_url, game_api_domain_url, game_api_launch_url,
		                            min_withdraw, max_withdraw, min_deposit, max_deposit,
		                            exposure_limit, default_master_id)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			ggr_coin = EXCLUDED.ggr_coin,
			game_api_url = EXCLUDED.game_api_url,
			game_api_secret = EXCLUDED.game_api_secret,
			game_api_token = EXCLUDED.game_api_token,
			game_api_callback_url = EXCLUDED.game_api_callback_url,
			game_api_domain_url = EXCLUDED.game_api_domain_url,
			game_api_launch_url = EXCLUDED.game_api_launch_url,
			min_withdraw = EXCLUDED.min_withdraw,
			max_withdraw = EXCLUDED.max_withdraw,
			min_deposit = EXCLUDED.min_deposit,
			max_deposit = EXCLUDED.max_deposit,
			exposure_limit = EXCLUDED.exposure_limit,
			default_master_id = EXCLUDED.default_master_id,
			updated_at = NOW()
		RETURNING id, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		s.GGRCoin,
		s.GameAPIURL,
		s.GameAPISecret,
		s.GameAPIToken,
		s.GameAPICallbackURL,
		s.GameAPIDomainURL,
		s.GameAPILaunchURL,
		s.MinWithdraw,
		s.MaxWithdraw,
		s.MinDeposit,
		s.MaxDeposit,
		s.ExposureLimit,
		s.DefaultMasterID,
	).Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
