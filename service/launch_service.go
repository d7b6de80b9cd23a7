package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

type launchService struct {
	uowFactory UnitOfWorkFactory
	settings   SettingsReader
	client     GameAPIClient
}

// NewLaunchService creates the game launch service
func NewLaunchService(uowFactory UnitOfWorkFactory, settings SettingsReader, client GameAPIClient) LaunchService {
	return &launchService{
		uowFactory: uowFactory,
		settings:   settings,
		client:     client,
	}
}

// Launch asks the provider for a session URL for the player. The wallet
// amount sent upstream is the player's main plus bonus balance.
func (s *launchService) Launch(ctx context.Context, playerID int64, gameUID string, client models.ClientInfo) (string, error) {
	gameUID = strings.TrimSpace(gameUID)
	if gameUID == "" {
		return "", ErrGameUIDRequired
	}

	settings, err := s.settings.Current(ctx)
	if err != nil && !errors.Is(err, ErrSettingsNotFound) {
		return "", fmt.Errorf("failed to get settings: %w", err)
	}
	if !settings.GameAPIConfigured() {
		return "", ErrGameAPINotConfigured
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	player, err := uow.AccountRepository().GetByID(ctx, playerID)
	if err != nil {
		return "", fmt.Errorf("failed to get player: %w", err)
	}
	if player == nil {
		return "", ErrAccountNotFound
	}
	if player.Role != models.RolePlayer {
		return "", ErrRoleNotPermitted
	}
	if !player.IsActive {
		return "", ErrInactiveAccount
	}

	var gameID *int64
	game, err := uow.GameCatalogRepository().GetGameByUID(ctx, gameUID)
	if err != nil {
		return "", fmt.Errorf("failed to get game: %w", err)
	}
	if game != nil {
		gameID = &game.ID
	}

	wallet := player.MainBalance.Add(player.BonusBalance)
	url, err := s.client.LaunchGame(ctx, settings.Credentials(), models.LaunchParams{
		UserID:       player.Username,
		WalletAmount: wallet,
		GameUID:      gameUID,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"accountID": player.ID,
			"gameUID":   gameUID,
		}).WithError(err).Warn("Game launch failed")
		return "", upstreamError(err)
	}

	remarks := fmt.Sprintf("Launched %s with wallet %s", gameUID, wallet.StringFixed(2))
	if err := recordActivity(ctx, uow, player.ID, models.ActivityBetPlaced, client, remarks, gameID); err != nil {
		return "", err
	}
	if err := uow.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID": player.ID,
		"gameUID":   gameUID,
		"wallet":    wallet.StringFixed(2),
	}).Info("Game launched")

	return url, nil
}
