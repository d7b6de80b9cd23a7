package api

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"tierledger/models"
	"tierledger/service"
)

type mockApprovals struct{ mock.Mock }

func (m *mockApprovals) Create(ctx context.Context, in service.NewRequest) (*models.Request, error) {
	args := m.Called(ctx, in)
	return requestArg(args)
}

func (m *mockApprovals) Approve(ctx context.Context, kind models.RequestKind, actorID, requestID int64, cred service.Credential) (*models.Request, error) {
	args := m.Called(ctx, kind, actorID, requestID, cred)
	return requestArg(args)
}

func (m *mockApprovals) Reject(ctx context.Context, kind models.RequestKind, actorID, requestID int64, reason string, cred service.Credential) (*models.Request, error) {
	args := m.Called(ctx, kind, actorID, requestID, reason, cred)
	return requestArg(args)
}

func (m *mockApprovals) Cancel(ctx context.Context, kind models.RequestKind, ownerID, requestID int64) (*models.Request, error) {
	args := m.Called(ctx, kind, ownerID, requestID)
	return requestArg(args)
}

func (m *mockApprovals) DirectDeposit(ctx context.Context, actorID, targetID int64, amount decimal.Decimal, cred service.Credential) (*models.Request, error) {
	args := m.Called(ctx, actorID, targetID, amount, cred)
	return requestArg(args)
}

func (m *mockApprovals) DirectWithdraw(ctx context.Context, actorID, targetID int64, amount decimal.Decimal, cred service.Credential) (*models.Request, error) {
	args := m.Called(ctx, actorID, targetID, amount, cred)
	return requestArg(args)
}

func (m *mockApprovals) List(ctx context.Context, kind models.RequestKind, actorID int64, status *models.RequestStatus, limit int) ([]*models.Request, error) {
	args := m.Called(ctx, kind, actorID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Request), args.Error(1)
}

func requestArg(args mock.Arguments) (*models.Request, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

type mockSettlements struct{ mock.Mock }

func (m *mockSettlements) Settle(ctx context.Context, superID, masterID int64, cred service.Credential) (*service.SettlementResult, error) {
	args := m.Called(ctx, superID, masterID, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SettlementResult), args.Error(1)
}

type mockTransfers struct{ mock.Mock }

func (m *mockTransfers) Transfer(ctx context.Context, senderID int64, recipientUsername string, amount decimal.Decimal, password string, client models.ClientInfo) (*service.TransferResult, error) {
	args := m.Called(ctx, senderID, recipientUsername, amount, password, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransferResult), args.Error(1)
}

type mockCallbacks struct{ mock.Mock }

func (m *mockCallbacks) SettleRound(ctx context.Context, in service.RoundResult) (*service.RoundOutcome, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RoundOutcome), args.Error(1)
}

type mockSettings struct{ mock.Mock }

func (m *mockSettings) Current(ctx context.Context) (*models.SuperSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SuperSetting), args.Error(1)
}

func (m *mockSettings) Update(ctx context.Context, actorID int64, settings *models.SuperSetting, cred service.Credential) (*models.SuperSetting, error) {
	args := m.Called(ctx, actorID, settings, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SuperSetting), args.Error(1)
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) CreateAccount(ctx context.Context, actorID int64, in service.NewAccount) (*models.Account, error) {
	args := m.Called(ctx, actorID, in)
	return accountArg(args)
}

func (m *mockAccounts) Signup(ctx context.Context, in service.SignupInput) (*service.SignupResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SignupResult), args.Error(1)
}

func (m *mockAccounts) Authenticate(ctx context.Context, username, password string, client models.ClientInfo) (*models.Account, error) {
	args := m.Called(ctx, username, password, client)
	return accountArg(args)
}

func (m *mockAccounts) ResetCredentials(ctx context.Context, actorID, targetID int64, newPassword, newPIN string, cred service.Credential, client models.ClientInfo) error {
	args := m.Called(ctx, actorID, targetID, newPassword, newPIN, cred, client)
	return args.Error(0)
}

func (m *mockAccounts) List(ctx context.Context, actorID int64, role *models.Role) ([]*models.Account, error) {
	args := m.Called(ctx, actorID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *mockAccounts) Get(ctx context.Context, actorID, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, actorID, accountID)
	return accountArg(args)
}

func (m *mockAccounts) History(ctx context.Context, actorID, accountID int64, limit int) (*service.AccountHistory, error) {
	args := m.Called(ctx, actorID, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccountHistory), args.Error(1)
}

func accountArg(args mock.Arguments) (*models.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type mockLaunches struct{ mock.Mock }

func (m *mockLaunches) Launch(ctx context.Context, playerID int64, gameUID string, client models.ClientInfo) (string, error) {
	args := m.Called(ctx, playerID, gameUID, client)
	return args.String(0), args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Sync(ctx context.Context, actorID int64) (*service.CatalogSyncResult, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CatalogSyncResult), args.Error(1)
}

type mockMessages struct{ mock.Mock }

func (m *mockMessages) Send(ctx context.Context, senderID, receiverID int64, body string, client models.ClientInfo) (*models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, body, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockMessages) List(ctx context.Context, accountID int64, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}
