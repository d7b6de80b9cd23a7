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

var launchSettings = &models.SuperSetting{
	GameAPIURL:       "https://api.provider.test",
	GameAPILaunchURL: "https://launch.provider.test",
	GameAPISecret:    "0123456789abcdef0123456789abcdef",
	GameAPIToken:     "tok",
}

func newLaunchFixture(settings *models.SuperSetting, settingsErr error) (context.Context, *MockUnitOfWork, *MockGameAPIClient, LaunchService) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectLifecycle(ctx)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	reader := new(MockSettingsReader)
	reader.On("Current", ctx).Return(settings, settingsErr)
	client := new(MockGameAPIClient)
	return ctx, uow, client, NewLaunchService(factory, reader, client)
}

func TestLaunch_SendsMainPlusBonus(t *testing.T) {
	ctx, uow, client, svc := newLaunchFixture(launchSettings, nil)
	_, _, _, player := chain("0", "0", "90")
	player.BonusBalance = dec("10.50")
	game := &models.Game{ID: 31, GameUID: "slot-9"}

	uow.Accounts.On("GetByID", ctx, player.ID).Return(player, nil)
	uow.Catalog.On("GetGameByUID", ctx, "slot-9").Return(game, nil)
	client.On("LaunchGame", ctx, launchSettings.Credentials(), mock.MatchedBy(func(p models.LaunchParams) bool {
		return p.UserID == player.Username && p.GameUID == "slot-9" && p.WalletAmount.Equal(dec("100.50"))
	})).Return("https://play.provider.test/session/abc", nil)
	uow.Activity.On("Create", ctx, mock.MatchedBy(func(e *models.ActivityLog) bool {
		return e.Action == models.ActivityBetPlaced && e.GameID != nil && *e.GameID == game.ID
	})).Return(nil)

	url, err := svc.Launch(ctx, player.ID, " slot-9 ", models.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "https://play.provider.test/session/abc", url)
	client.AssertExpectations(t)
	uow.AssertRepositories(t)
}

func TestLaunch_Preconditions(t *testing.T) {
	_, _, master, player := chain("0", "0", "0")

	t.Run("missing game uid", func(t *testing.T) {
		_, _, _, svc := newLaunchFixture(launchSettings, nil)
		_, err := svc.Launch(context.Background(), player.ID, "", models.ClientInfo{})
		assert.ErrorIs(t, err, ErrGameUIDRequired)
	})

	t.Run("api not configured", func(t *testing.T) {
		ctx, _, client, svc := newLaunchFixture(&models.SuperSetting{GameAPIURL: "https://x"}, nil)
		_, err := svc.Launch(ctx, player.ID, "slot", models.ClientInfo{})
		assert.ErrorIs(t, err, ErrGameAPINotConfigured)
		assert.ErrorIs(t, err, ErrUnavailable)
		client.AssertNotCalled(t, "LaunchGame", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("settings row missing", func(t *testing.T) {
		ctx, _, _, svc := newLaunchFixture(nil, ErrSettingsNotFound)
		_, err := svc.Launch(ctx, player.ID, "slot", models.ClientInfo{})
		assert.ErrorIs(t, err, ErrGameAPINotConfigured)
	})

	t.Run("not a player", func(t *testing.T) {
		ctx, uow, _, svc := newLaunchFixture(launchSettings, nil)
		uow.Accounts.On("GetByID", ctx, master.ID).Return(master, nil)
		_, err := svc.Launch(ctx, master.ID, "slot", models.ClientInfo{})
		assert.ErrorIs(t, err, ErrRoleNotPermitted)
	})
}

func TestLaunch_UpstreamFailure(t *testing.T) {
	ctx, uow, client, svc := newLaunchFixture(launchSettings, nil)
	_, _, _, player := chain("0", "0", "5")

	uow.Accounts.On("GetByID", ctx, player.ID).Return(player, nil)
	uow.Catalog.On("GetGameByUID", ctx, "slot").Return(nil, nil)
	client.On("LaunchGame", ctx, mock.Anything, mock.Anything).Return("", errors.New("dial tcp: timeout"))

	_, err := svc.Launch(ctx, player.ID, "slot", models.ClientInfo{})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, ErrUpstream)
	uow.Activity.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	uow.AssertNotCalled(t, "Commit")
}
