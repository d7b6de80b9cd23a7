package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

// catalogGamesPerProvider is the count requested from the provider game listing
const catalogGamesPerProvider = 500

type catalogService struct {
	uowFactory UnitOfWorkFactory
	settings   SettingsReader
	client     GameAPIClient
}

// NewCatalogService creates the provider catalog sync service
func NewCatalogService(uowFactory UnitOfWorkFactory, settings SettingsReader, client GameAPIClient) CatalogService {
	return &catalogService{
		uowFactory: uowFactory,
		settings:   settings,
		client:     client,
	}
}

// CatalogSyncResult counts what a sync wrote
type CatalogSyncResult struct {
	Providers  int `json:"providers"`
	Categories int `json:"categories"`
	Games      int `json:"games"`
}

// Sync fetches every provider and its games from upstream and upserts them.
// Nothing is written unless the whole fetch succeeds.
func (s *catalogService) Sync(ctx context.Context, actorID int64) (*CatalogSyncResult, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil && !errors.Is(err, ErrSettingsNotFound) {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if err := s.checkActor(ctx, actorID); err != nil {
		return nil, err
	}
	if settings == nil || settings.GameAPIURL == "" {
		return nil, ErrGameAPINotConfigured
	}
	creds := settings.Credentials()

	providers, err := s.client.ListProviders(ctx, creds)
	if err != nil {
		return nil, upstreamError(err)
	}
	games := make(map[string][]models.CatalogGame, len(providers))
	for _, p := range providers {
		list, err := s.client.ListProviderGames(ctx, creds, p.Code, catalogGamesPerProvider)
		if err != nil {
			return nil, upstreamError(err)
		}
		games[p.Code] = list
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	catalog := uow.GameCatalogRepository()
	result := &CatalogSyncResult{}
	categories := make(map[string]int64)

	for _, p := range providers {
		name := p.Name
		if name == "" {
			name = p.Code
		}
		provider, err := catalog.UpsertProvider(ctx, p.Code, truncate(name, models.MaxGameNameLength))
		if err != nil {
			return nil, fmt.Errorf("failed to upsert provider %s: %w", p.Code, err)
		}
		result.Providers++

		for _, g := range games[p.Code] {
			if strings.TrimSpace(g.Code) == "" {
				continue
			}
			categoryName := strings.TrimSpace(g.Type)
			if categoryName == "" {
				categoryName = models.DefaultCategoryName
			}
			categoryID, ok := categories[categoryName]
			if !ok {
				category, err := catalog.EnsureCategory(ctx, categoryName)
				if err != nil {
					return nil, fmt.Errorf("failed to ensure category %s: %w", categoryName, err)
				}
				categoryID = category.ID
				categories[categoryName] = categoryID
			}

			gameName := g.Name
			if gameName == "" {
				gameName = g.Code
			}
			if _, err := catalog.UpsertGame(ctx, &models.Game{
				ProviderID: provider.ID,
				CategoryID: categoryID,
				Name:       truncate(gameName, models.MaxGameNameLength),
				GameUID:    g.Code,
				ImageURL:   g.ImageURL,
				IsActive:   true,
			}); err != nil {
				return nil, fmt.Errorf("failed to upsert game %s: %w", g.Code, err)
			}
			result.Games++
		}
	}
	result.Categories = len(categories)

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"actorID":    actorID,
		"providers":  result.Providers,
		"categories": result.Categories,
		"games":      result.Games,
	}).Info("Catalog synced")

	return result, nil
}

func (s *catalogService) checkActor(ctx context.Context, actorID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actor, err := uow.AccountRepository().GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return ErrAccountNotFound
	}
	_, err = PolicyFor(actor.Role, actor.Role, OpSyncCatalog)
	return err
}

// upstreamError makes sure a provider failure carries the upstream kind
func upstreamError(err error) error {
	if errors.Is(err, ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
