package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/models"
)

const gameColumns = `
	id, provider_id, category_id, name, game_uid, image_url, min_bet, max_bet,
	is_active, created_at, updated_at`

// GameCatalogRepository implements the GameCatalogRepository interface
type GameCatalogRepository struct {
	q queryable
}

// NewGameCatalogRepository creates a new game catalog repository
func NewGameCatalogRepository(db *database.DB) *GameCatalogRepository {
	return &GameCatalogRepository{q: db.Pool}
}

// newGameCatalogRepositoryWithTx creates a new game catalog repository with a transaction
func newGameCatalogRepositoryWithTx(tx queryable) *GameCatalogRepository {
	return &GameCatalogRepository{q: tx}
}

func (r *GameCatalogRepository) saveProvider(ctx context.Context, code, name string, refresh bool) (*models.GameProvider, error) {
	// The no-op update on conflict makes RETURNING yield the existing row
	onConflict := `DO UPDATE SET code = EXCLUDED.code`
	if refresh {
		onConflict = `DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`
	}
	query := `
		INSERT INTO game_providers (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) ` + onConflict + `
		RETURNING id, name, code, api_endpoint, is_active, created_at, updated_at
	`
	var p models.GameProvider
	err := r.q.QueryRow(ctx, query, code, name).Scan(
		&p.ID,
		&p.Name,
		&p.Code,
		&p.APIEndpoint,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save provider %s: %w", code, err)
	}
	return &p, nil
}

// EnsureProvider returns the provider with code, creating it if absent
func (r *GameCatalogRepository) EnsureProvider(ctx context.Context, code, name string) (*models.GameProvider, error) {
	return r.saveProvider(ctx, code, name, false)
}

// UpsertProvider creates the provider or refreshes its name
func (r *GameCatalogRepository) UpsertProvider(ctx context.Context, code, name string) (*models.GameProvider, error) {
	return r.saveProvider(ctx, code, name, true)
}

// EnsureCategory returns the category with name, creating it if absent
func (r *GameCatalogRepository) EnsureCategory(ctx context.Context, name string) (*models.GameCategory, error) {
	query := `
		INSERT INTO game_categories (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, is_active, created_at, updated_at
	`
	var c models.GameCategory
	err := r.q.QueryRow(ctx, query, name).Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure category %s: %w", name, err)
	}
	return &c, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	err := row.Scan(
		&g.ID,
		&g.ProviderID,
		&g.CategoryID,
		&g.Name,
		&g.GameUID,
		&g.ImageURL,
		&g.MinBet,
		&g.MaxBet,
		&g.IsActive,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGameByUID retrieves a game by its provider identifier
func (r *GameCatalogRepository) GetGameByUID(ctx context.Context, gameUID string) (*models.Game, error) {
	game, err := scanGame(r.q.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE game_uid = $1`, gameUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %s: %w", gameUID, err)
	}
	return game, nil
}

func (r *GameCatalogRepository) saveGame(ctx context.Context, game *models.Game, refresh bool) (*models.Game, error) {
	onConflict := `DO UPDATE SET game_uid = EXCLUDED.game_uid`
	if refresh {
		onConflict = `DO UPDATE SET provider_id = EXCLUDED.provider_id, category_id = EXCLUDED.category_id,
			name = EXCLUDED.name, image_url = EXCLUDED.image_url, updated_at = NOW()`
	}
	query := `
		INSERT INTO games (provider_id, category_id, name, game_uid, image_url, min_bet, max_bet, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_uid) ` + onConflict + `
		RETURNING ` + gameColumns
	saved, err := scanGame(r.q.QueryRow(ctx, query,
		game.ProviderID,
		game.CategoryID,
		game.Name,
		game.GameUID,
		game.ImageURL,
		game.MinBet,
		game.MaxBet,
		game.IsActive,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save game %s: %w", game.GameUID, err)
	}
	return saved, nil
}

// EnsureGame returns the game with game.GameUID, creating it if absent
func (r *GameCatalogRepository) EnsureGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	return r.saveGame(ctx, game, false)
}

// UpsertGame creates the game or refreshes its catalog fields
func (r *GameCatalogRepository) UpsertGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	return r.saveGame(ctx, game, true)
}
