package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tierledger/models"
)

func newCatalogFixture(settings *models.SuperSetting) (context.Context, *MockUnitOfWork, *MockGameAPIClient, CatalogService) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectLifecycle(ctx)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	reader := new(MockSettingsReader)
	reader.On("Current", ctx).Return(settings, nil)
	client := new(MockGameAPIClient)
	return ctx, uow, client, NewCatalogService(factory, reader, client)
}

func TestSync_UpsertsCatalog(t *testing.T) {
	ctx, uow, client, svc := newCatalogFixture(launchSettings)
	ph, _, _, _ := chain("0", "0", "0")
	creds := launchSettings.Credentials()

	uow.Accounts.On("GetByID", ctx, ph.ID).Return(ph, nil)
	client.On("ListProviders", ctx, creds).Return([]models.CatalogProvider{
		{Code: "PG", Name: "Pocket Games"},
		{Code: "JL"},
	}, nil)
	client.On("ListProviderGames", ctx, creds, "PG", catalogGamesPerProvider).Return([]models.CatalogGame{
		{Name: "Fortune Ox", Code: "pg-1", Type: "Slots"},
		{Name: "Broken", Code: " "},
		{Name: "Mahjong", Code: "pg-2", Type: "Slots"},
	}, nil)
	client.On("ListProviderGames", ctx, creds, "JL", catalogGamesPerProvider).Return([]models.CatalogGame{
		{Code: "jl-1"},
	}, nil)

	uow.Catalog.On("UpsertProvider", ctx, "PG", "Pocket Games").Return(&models.GameProvider{ID: 1, Code: "PG"}, nil)
	uow.Catalog.On("UpsertProvider", ctx, "JL", "JL").Return(&models.GameProvider{ID: 2, Code: "JL"}, nil)
	uow.Catalog.On("EnsureCategory", ctx, "Slots").Return(&models.GameCategory{ID: 10}, nil).Once()
	uow.Catalog.On("EnsureCategory", ctx, models.DefaultCategoryName).Return(&models.GameCategory{ID: 11}, nil).Once()
	uow.Catalog.On("UpsertGame", ctx, mock.MatchedBy(func(g *models.Game) bool {
		return g.ProviderID == 1 && g.CategoryID == 10
	})).Return(&models.Game{}, nil).Twice()
	uow.Catalog.On("UpsertGame", ctx, mock.MatchedBy(func(g *models.Game) bool {
		return g.ProviderID == 2 && g.CategoryID == 11 && g.Name == "jl-1"
	})).Return(&models.Game{}, nil).Once()

	result, err := svc.Sync(ctx, ph.ID)
	require.NoError(t, err)
	assert.Equal(t, &CatalogSyncResult{Providers: 2, Categories: 2, Games: 3}, result)
	client.AssertExpectations(t)
	uow.AssertRepositories(t)
}

func TestSync_FetchFailureWritesNothing(t *testing.T) {
	ctx, uow, client, svc := newCatalogFixture(launchSettings)
	ph, _, _, _ := chain("0", "0", "0")

	uow.Accounts.On("GetByID", ctx, ph.ID).Return(ph, nil)
	client.On("ListProviders", ctx, mock.Anything).Return([]models.CatalogProvider{{Code: "PG"}}, nil)
	client.On("ListProviderGames", ctx, mock.Anything, "PG", catalogGamesPerProvider).Return(nil, errors.New("502 bad gateway"))

	_, err := svc.Sync(ctx, ph.ID)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	uow.Catalog.AssertNotCalled(t, "UpsertProvider", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_Rejections(t *testing.T) {
	_, sup, _, _ := chain("0", "0", "0")
	ph := newTestAccount(1, "root", models.RolePowerhouse, nil, "0")

	t.Run("only powerhouse", func(t *testing.T) {
		ctx, uow, _, svc := newCatalogFixture(launchSettings)
		uow.Accounts.On("GetByID", ctx, sup.ID).Return(sup, nil)
		_, err := svc.Sync(ctx, sup.ID)
		assert.ErrorIs(t, err, ErrRoleNotPermitted)
	})

	t.Run("no api url", func(t *testing.T) {
		ctx, uow, client, svc := newCatalogFixture(&models.SuperSetting{})
		uow.Accounts.On("GetByID", ctx, ph.ID).Return(ph, nil)
		_, err := svc.Sync(ctx, ph.ID)
		assert.ErrorIs(t, err, ErrGameAPINotConfigured)
		client.AssertNotCalled(t, "ListProviders", mock.Anything, mock.Anything)
	})
}
