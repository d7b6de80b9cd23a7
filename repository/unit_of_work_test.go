package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tierledger/events"
	"tierledger/models"
	"tierledger/repository/testutil"
)

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	account := testutil.InsertAccount(t, testDB.DB, "uow", models.RolePowerhouse, nil, "0")

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeBalanceChanged, func(ctx context.Context, e events.Event) {
		received <- e
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	assert.Error(t, uow.Begin(ctx), "second Begin must fail")

	tx := &models.Transaction{
		RefID:      uuid.New(),
		AccountID:  account.ID,
		ActionType: models.ActionIn,
		Wallet:     models.WalletMain,
		Type:       models.TransactionTypeDeposit,
		Amount:     decimal.NewFromInt(5),
		Status:     models.TransactionStatusSuccess,
	}
	require.NoError(t, uow.TransactionRepository().Create(ctx, tx))
	uow.EventBus().Publish(events.BalanceChangedEvent{AccountID: account.ID, RefID: tx.RefID})

	select {
	case <-received:
		t.Fatal("event delivered before commit")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback(), "rollback after commit is a no-op")

	select {
	case e := <-received:
		assert.Equal(t, account.ID, e.(events.BalanceChangedEvent).AccountID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered after commit")
	}

	legs, err := NewTransactionRepository(testDB.DB).ListByRefID(ctx, tx.RefID)
	require.NoError(t, err)
	assert.Len(t, legs, 1)
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.SubscribeAll(func(ctx context.Context, e events.Event) {
		received <- e
	})

	uow := NewUnitOfWorkFactory(testDB.DB, bus).Create()
	require.NoError(t, uow.Begin(ctx))

	account := testutil.CreateTestAccount(t, "rolled_back", models.RolePowerhouse, nil)
	require.NoError(t, uow.AccountRepository().Create(ctx, account))
	uow.EventBus().Publish(events.AccountCreatedEvent{AccountID: account.ID})
	require.NoError(t, uow.Rollback())

	select {
	case <-received:
		t.Fatal("event delivered after rollback")
	case <-time.After(100 * time.Millisecond):
	}

	stored, err := NewAccountRepository(testDB.DB).GetByUsername(ctx, "rolled_back")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUnitOfWork_PanicsBeforeBegin(t *testing.T) {
	uow := NewUnitOfWorkFactory(nil, events.NewBus()).Create()
	assert.Panics(t, func() { uow.AccountRepository() })
	assert.Panics(t, func() { uow.RequestRepository(models.RequestKindDeposit) })
}
