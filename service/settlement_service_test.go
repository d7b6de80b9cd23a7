package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tierledger/events"
	"tierledger/models"
)

func newSettlementFixture() (context.Context, *MockUnitOfWork, SettlementService) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectLifecycle(ctx)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	return ctx, uow, NewSettlementService(factory)
}

func TestSettle_SweepsBalanceAndClearsPL(t *testing.T) {
	ctx, uow, svc := newSettlementFixture()
	_, sup, master, _ := chain("1000", "500", "0")
	master.PLBalance = dec("-120")

	lockedSuper, lockedMaster := copyAccount(sup), copyAccount(master)
	uow.Accounts.On("GetByID", ctx, sup.ID).Return(sup, nil)
	uow.Accounts.On("GetByID", ctx, master.ID).Return(master, nil)
	uow.Accounts.On("LockAccounts", ctx, []int64{sup.ID, master.ID}).
		Return(map[int64]*models.Account{sup.ID: lockedSuper, master.ID: lockedMaster}, nil)
	expectLegs(uow, 2)

	result, err := svc.Settle(ctx, sup.ID, master.ID, Credential{PIN: testPIN})
	require.NoError(t, err)

	assertDecimal(t, "500", result.Amount)
	assertDecimal(t, "-120", result.PLCleared)
	assertDecimal(t, "1500", result.SuperBalanceNow)
	assertDecimal(t, "0", result.MasterBalanceNow)
	assertDecimal(t, "0", lockedMaster.PLBalance)

	settled := uow.Events.OfType(events.EventTypeSettlementCompleted)
	require.Len(t, settled, 1)
	assert.Equal(t, master.ID, settled[0].(events.SettlementCompletedEvent).MasterID)
	uow.AssertRepositories(t)
}

func TestSettle_ZeroBalanceStillWritesLegs(t *testing.T) {
	ctx, uow, svc := newSettlementFixture()
	_, sup, master, _ := chain("1000", "0", "0")
	master.PLBalance = dec("35")

	uow.Accounts.On("GetByID", ctx, sup.ID).Return(sup, nil)
	uow.Accounts.On("GetByID", ctx, master.ID).Return(master, nil)
	uow.Accounts.On("LockAccounts", ctx, []int64{sup.ID, master.ID}).
		Return(map[int64]*models.Account{sup.ID: copyAccount(sup), master.ID: copyAccount(master)}, nil)
	expectLegs(uow, 2)

	result, err := svc.Settle(ctx, sup.ID, master.ID, Credential{PIN: testPIN})
	require.NoError(t, err)
	assertDecimal(t, "0", result.Amount)
	assertDecimal(t, "35", result.PLCleared)
	uow.AssertRepositories(t)
}

func TestSettle_Rejections(t *testing.T) {
	ph, sup, master, player := chain("0", "0", "0")
	otherSuper := newTestAccount(40, "other", models.RoleSuper, ph, "0")

	tests := []struct {
		name     string
		actor    *models.Account
		target   *models.Account
		cred     Credential
		expected error
	}{
		{"actor is not a super", ph, master, Credential{PIN: testPIN}, ErrRoleNotPermitted},
		{"target is a player", sup, player, Credential{PIN: testPIN}, ErrInvalidRelationship},
		{"master of another super", otherSuper, master, Credential{PIN: testPIN}, ErrInvalidRelationship},
		{"wrong pin", sup, master, Credential{PIN: "0000"}, ErrInvalidPIN},
		{"password is not enough", sup, master, Credential{Password: testPassword}, ErrCredentialRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, uow, svc := newSettlementFixture()
			uow.Accounts.On("GetByID", ctx, tt.actor.ID).Return(tt.actor, nil)
			uow.Accounts.On("GetByID", ctx, tt.target.ID).Return(tt.target, nil).Maybe()

			_, err := svc.Settle(ctx, tt.actor.ID, tt.target.ID, tt.cred)
			assert.ErrorIs(t, err, tt.expected)
			uow.Accounts.AssertNotCalled(t, "LockAccounts", mock.Anything, mock.Anything)
			uow.AssertNotCalled(t, "Commit")
		})
	}
}
