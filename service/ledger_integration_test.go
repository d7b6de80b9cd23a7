package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tierledger/events"
	"tierledger/models"
	"tierledger/repository"
	"tierledger/repository/testutil"
	"tierledger/service"
)

type ledgerServices struct {
	accounts    *repository.AccountRepository
	ledger      *repository.TransactionRepository
	approvals   service.ApprovalService
	settlements service.SettlementService
	transfers   service.TransferService
	callbacks   service.CallbackService
	signups     service.AccountService
	settings    *repository.SettingsRepository
	bonusRules  *repository.BonusRuleRepository
	gameLogs    *repository.GameLogRepository
}

func setupLedger(t *testing.T) (*testutil.TestDatabase, *ledgerServices) {
	testDB := testutil.SetupTestDatabase(t)

	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	settingsRepo := repository.NewSettingsRepository(testDB.DB)
	settings := service.NewSettingsService(uowFactory, settingsRepo, nil)

	return testDB, &ledgerServices{
		accounts:    repository.NewAccountRepository(testDB.DB),
		ledger:      repository.NewTransactionRepository(testDB.DB),
		approvals:   service.NewApprovalService(uowFactory),
		settlements: service.NewSettlementService(uowFactory),
		transfers:   service.NewTransferService(uowFactory),
		callbacks:   service.NewCallbackService(uowFactory, settings),
		signups:     service.NewAccountService(uowFactory, service.NewBonusGranter(uowFactory)),
		settings:    settingsRepo,
		bonusRules:  repository.NewBonusRuleRepository(testDB.DB),
		gameLogs:    repository.NewGameLogRepository(testDB.DB),
	}
}

func (s *ledgerServices) mainBalance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	account, err := s.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account.MainBalance
}

func (s *ledgerServices) account(t *testing.T, id int64) *models.Account {
	t.Helper()
	account, err := s.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account
}

func assertAmount(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual.StringFixed(2))
}

func pin() service.Credential {
	return service.Credential{PIN: testutil.TestPIN}
}

func TestLedgerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB, s := setupLedger(t)
	ctx := context.Background()

	t.Run("deposit approval moves parent funds", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "dep", "0", "1000", "0")

		req, err := s.approvals.Create(ctx, service.NewRequest{
			Kind:    models.RequestKindDeposit,
			OwnerID: h.Player.ID,
			Amount:  decimal.RequireFromString("200"),
		})
		require.NoError(t, err)

		approved, err := s.approvals.Approve(ctx, models.RequestKindDeposit, h.Master.ID, req.ID, pin())
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, approved.Status)

		assertAmount(t, "800", s.mainBalance(t, h.Master.ID))
		assertAmount(t, "200", s.mainBalance(t, h.Player.ID))

		legs, err := s.ledger.ListByAccount(ctx, h.Player.ID, 10)
		require.NoError(t, err)
		require.Len(t, legs, 1)
		pair, err := s.ledger.ListByRefID(ctx, legs[0].RefID)
		require.NoError(t, err)
		assert.Len(t, pair, 2)
		assert.Equal(t, models.TransactionTypeDeposit, legs[0].Type)
		assertAmount(t, "0", legs[0].BalanceBefore.Decimal)
		assertAmount(t, "200", legs[0].BalanceAfter.Decimal)
	})

	t.Run("insufficient parent balance changes nothing", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "poor", "0", "100", "0")

		req, err := s.approvals.Create(ctx, service.NewRequest{
			Kind:    models.RequestKindDeposit,
			OwnerID: h.Player.ID,
			Amount:  decimal.RequireFromString("200"),
		})
		require.NoError(t, err)

		_, err = s.approvals.Approve(ctx, models.RequestKindDeposit, h.Master.ID, req.ID, pin())
		assert.ErrorIs(t, err, service.ErrParentInsufficientBalance)

		assertAmount(t, "100", s.mainBalance(t, h.Master.ID))
		assertAmount(t, "0", s.mainBalance(t, h.Player.ID))

		pending := models.RequestStatusPending
		list, err := s.approvals.List(ctx, models.RequestKindDeposit, h.Master.ID, &pending, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, req.ID, list[0].ID)

		legs, err := s.ledger.ListByAccount(ctx, h.Master.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, legs)
	})

	t.Run("foreign master cannot approve", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "own", "0", "1000", "0")
		other := testutil.InsertHierarchy(t, testDB.DB, "other", "0", "1000", "0")

		req, err := s.approvals.Create(ctx, service.NewRequest{
			Kind:    models.RequestKindDeposit,
			OwnerID: h.Player.ID,
			Amount:  decimal.RequireFromString("50"),
		})
		require.NoError(t, err)

		_, err = s.approvals.Approve(ctx, models.RequestKindDeposit, other.Master.ID, req.ID, pin())
		assert.ErrorIs(t, err, service.ErrOutOfScope)

		_, err = s.approvals.Approve(ctx, models.RequestKindDeposit, other.Super.ID, req.ID, pin())
		assert.ErrorIs(t, err, service.ErrOutOfScope)

		assertAmount(t, "1000", s.mainBalance(t, h.Master.ID))
		assertAmount(t, "0", s.mainBalance(t, h.Player.ID))

		// The grandparent Super may act on the player
		_, err = s.approvals.Approve(ctx, models.RequestKindDeposit, h.Super.ID, req.ID, pin())
		require.NoError(t, err)
		assertAmount(t, "950", s.mainBalance(t, h.Master.ID))
	})

	t.Run("concurrent approvals apply once", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "race", "0", "1000", "0")

		req, err := s.approvals.Create(ctx, service.NewRequest{
			Kind:    models.RequestKindDeposit,
			OwnerID: h.Player.ID,
			Amount:  decimal.RequireFromString("300"),
		})
		require.NoError(t, err)

		const workers = 4
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				actor := h.Master.ID
				if i%2 == 1 {
					actor = h.Super.ID
				}
				_, errs[i] = s.approvals.Approve(ctx, models.RequestKindDeposit, actor, req.ID, pin())
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, service.ErrRequestNotPending), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded)
		assertAmount(t, "700", s.mainBalance(t, h.Master.ID))
		assertAmount(t, "300", s.mainBalance(t, h.Player.ID))
	})

	t.Run("withdraw returns funds to parent", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "wd", "0", "0", "400")
		testutil.InsertApprovedPaymentMode(t, testDB.DB, h.Player.ID)

		req, err := s.approvals.Create(ctx, service.NewRequest{
			Kind:    models.RequestKindWithdraw,
			OwnerID: h.Player.ID,
			Amount:  decimal.RequireFromString("150"),
		})
		require.NoError(t, err)

		_, err = s.approvals.Approve(ctx, models.RequestKindWithdraw, h.Master.ID, req.ID, pin())
		require.NoError(t, err)
		assertAmount(t, "250", s.mainBalance(t, h.Player.ID))
		assertAmount(t, "150", s.mainBalance(t, h.Master.ID))
	})

	t.Run("powerhouse mints into super", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "mint", "0", "0", "0")

		_, err := s.approvals.DirectDeposit(ctx, h.Powerhouse.ID, h.Super.ID, decimal.RequireFromString("5000"),
			service.Credential{Password: testutil.TestPassword})
		require.NoError(t, err)
		assertAmount(t, "5000", s.mainBalance(t, h.Super.ID))
		assertAmount(t, "0", s.mainBalance(t, h.Powerhouse.ID))
	})

	t.Run("settlement sweeps master", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "settle", "1000", "500", "0")
		_, err := testDB.DB.Exec(ctx, `UPDATE accounts SET pl_balance = -50 WHERE id = $1`, h.Master.ID)
		require.NoError(t, err)

		result, err := s.settlements.Settle(ctx, h.Super.ID, h.Master.ID, pin())
		require.NoError(t, err)
		assertAmount(t, "500", result.Amount)
		assertAmount(t, "-50", result.PLCleared)

		master := s.account(t, h.Master.ID)
		assertAmount(t, "0", master.MainBalance)
		assertAmount(t, "0", master.PLBalance)
		assertAmount(t, "1500", s.mainBalance(t, h.Super.ID))
	})

	t.Run("callback replay is idempotent", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "cb", "0", "0", "1000")
		round := service.RoundResult{
			PlayerRef:    h.Player.Username,
			BetAmount:    decimal.RequireFromString("100"),
			WinAmount:    decimal.RequireFromString("50"),
			GameUID:      "integration-slot",
			Round:        "round-1",
			WalletBefore: decimal.RequireFromString("1000"),
			WalletAfter:  decimal.RequireFromString("950"),
			Raw:          map[string]any{"game_round": "round-1"},
		}

		first, err := s.callbacks.SettleRound(ctx, round)
		require.NoError(t, err)
		assert.False(t, first.Replay)

		second, err := s.callbacks.SettleRound(ctx, round)
		require.NoError(t, err)
		assert.True(t, second.Replay)
		assert.Equal(t, first.GameLog.ID, second.GameLog.ID)

		assertAmount(t, "950", s.mainBalance(t, h.Player.ID))
		assertAmount(t, "50", s.account(t, h.Master.ID).PLBalance)

		logs, err := s.gameLogs.ListByAccount(ctx, h.Player.ID, 10)
		require.NoError(t, err)
		assert.Len(t, logs, 1)

		legs, err := s.ledger.ListByAccount(ctx, h.Player.ID, 10)
		require.NoError(t, err)
		assert.Len(t, legs, 1)
	})

	t.Run("player transfer", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "xfer", "0", "0", "300")
		bob := testutil.InsertAccount(t, testDB.DB, "xfer_bob", models.RolePlayer, &h.Master.ID, "0")

		_, err := s.transfers.Transfer(ctx, h.Player.ID, bob.Username, decimal.RequireFromString("120"), "wrong", models.ClientInfo{})
		assert.ErrorIs(t, err, service.ErrInvalidPassword)

		result, err := s.transfers.Transfer(ctx, h.Player.ID, bob.Username, decimal.RequireFromString("120"), testutil.TestPassword, models.ClientInfo{})
		require.NoError(t, err)
		assertAmount(t, "180", result.NewBalance)
		assertAmount(t, "120", s.mainBalance(t, bob.ID))
	})

	t.Run("signup pays welcome bonus", func(t *testing.T) {
		h := testutil.InsertHierarchy(t, testDB.DB, "signup", "0", "100", "0")
		require.NoError(t, s.bonusRules.Create(ctx, testutil.CreateTestBonusRule(models.BonusTypeWelcome, "15")))

		current, err := s.settings.Get(ctx)
		require.NoError(t, err)
		current.DefaultMasterID = &h.Master.ID
		require.NoError(t, s.settings.Update(ctx, current))

		result, err := s.signups.Signup(ctx, service.SignupInput{Username: "signup_new", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, h.Master.ID, *result.Account.ParentID)
		assert.True(t, result.Welcome.Applied, result.Welcome.Reason)

		assertAmount(t, "15", s.account(t, result.Account.ID).BonusBalance)
		assertAmount(t, "85", s.mainBalance(t, h.Master.ID))
	})
}
