package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tierledger/models"
)

var grantTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newGrantFixture() (context.Context, *MockUnitOfWork, *bonusGranter) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectLifecycle(ctx)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	return ctx, uow, &bonusGranter{uowFactory: factory, now: func() time.Time { return grantTime }}
}

func flatRule(bonusType models.BonusType, amount string) *models.BonusRule {
	return &models.BonusRule{
		ID:           1,
		BonusType:    bonusType,
		RewardType:   models.RewardTypeFlat,
		RewardAmount: dec(amount),
		IsActive:     true,
	}
}

func TestGrantWelcome_PaysFromMaster(t *testing.T) {
	ctx, uow, g := newGrantFixture()
	_, _, master, player := chain("0", "500", "0")
	lockedMaster, lockedPlayer := copyAccount(master), copyAccount(player)

	uow.BonusRules.On("GetActive", ctx, models.BonusTypeWelcome, grantTime).Return(flatRule(models.BonusTypeWelcome, "25"), nil)
	uow.Accounts.On("GetByID", ctx, player.ID).Return(player, nil)
	uow.Accounts.On("LockAccounts", ctx, []int64{player.ID, master.ID}).
		Return(map[int64]*models.Account{player.ID: lockedPlayer, master.ID: lockedMaster}, nil)
	expectLegs(uow, 2)

	result, err := g.GrantWelcome(ctx, player.ID)
	require.NoError(t, err)

	assert.True(t, result.Applied)
	assertDecimal(t, "25", result.Amount)
	assertDecimal(t, "475", lockedMaster.MainBalance)
	assertDecimal(t, "25", lockedPlayer.BonusBalance)
	assertDecimal(t, "0", lockedPlayer.MainBalance)
	uow.AssertRepositories(t)
}

func TestGrant_SkipReasons(t *testing.T) {
	_, sup, master, player := chain("0", "10", "0")
	orphan := newTestAccount(50, "orphan", models.RolePlayer, nil, "0")

	t.Run("no rule", func(t *testing.T) {
		ctx, uow, g := newGrantFixture()
		uow.BonusRules.On("GetActive", ctx, models.BonusTypeWelcome, grantTime).Return(nil, nil)

		result, err := g.GrantWelcome(ctx, player.ID)
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, "No active welcome bonus rule", result.Reason)
	})

	t.Run("no parent", func(t *testing.T) {
		ctx, uow, g := newGrantFixture()
		uow.BonusRules.On("GetActive", ctx, models.BonusTypeWelcome, grantTime).Return(flatRule(models.BonusTypeWelcome, "5"), nil)
		uow.Accounts.On("GetByID", ctx, orphan.ID).Return(orphan, nil)

		result, err := g.GrantWelcome(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Equal(t, "Player has no parent master", result.Reason)
	})

	t.Run("welcome parent is not a master", func(t *testing.T) {
		ctx, uow, g := newGrantFixture()
		uow.BonusRules.On("GetActive", ctx, models.BonusTypeWelcome, grantTime).Return(flatRule(models.BonusTypeWelcome, "5"), nil)
		uow.Accounts.On("GetByID", ctx, master.ID).Return(master, nil)
		uow.Accounts.On("LockAccounts", ctx, []int64{master.ID, sup.ID}).
			Return(map[int64]*models.Account{master.ID: copyAccount(master), sup.ID: copyAccount(sup)}, nil)

		result, err := g.GrantWelcome(ctx, master.ID)
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, "Player has no parent master", result.Reason)
	})

	t.Run("percentage rule", func(t *testing.T) {
		ctx, uow, g := newGrantFixture()
		rule := flatRule(models.BonusTypeWelcome, "10")
		rule.RewardType = models.RewardTypePercentage
		uow.BonusRules.On("GetActive", ctx, models.BonusTypeWelcome, grantTime).Return(rule, nil)
		uow.Accounts.On("GetByID", ctx, player.ID).Return(player, nil)
		uow.Accounts.On("LockAccounts", ctx, []int64{player.ID, master.ID}).
			Return(map[int64]*models.Account{player.ID: copyAccount(player), master.ID: copyAccount(master)}, nil)

		result, err := g.GrantWelcome(ctx, player.ID)
		require.NoError(t, err)
		assert.Equal(t, "Invalid reward amount", result.Reason)
	})

	t.Run("parent cannot cover", func(t *testing.T) {
		ctx, uow, g := newGrantFixture()
		uow.BonusRules.On("GetActive", ctx, models.BonusTypeReferral, grantTime).Return(flatRule(models.BonusTypeReferral, "50"), nil)
		uow.Accounts.On("GetByID", ctx, player.ID).Return(player, nil)
		uow.Accounts.On("LockAccounts", ctx, []int64{player.ID, master.ID}).
			Return(map[int64]*models.Account{player.ID: copyAccount(player), master.ID: copyAccount(master)}, nil)

		result, err := g.GrantReferral(ctx, player.ID)
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assertDecimal(t, "50", result.Amount)
		assert.Equal(t, "Parent has insufficient balance", result.Reason)
		uow.Transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		uow.AssertNotCalled(t, "Commit")
	})
}
