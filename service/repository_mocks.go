package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"tierledger/events"
	"tierledger/models"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateWallets(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateCredentials(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) ListByParent(ctx context.Context, parentID int64, role *models.Role) ([]*models.Account, error) {
	args := m.Called(ctx, parentID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) ListByGrandparent(ctx context.Context, grandparentID int64) ([]*models.Account, error) {
	args := m.Called(ctx, grandparentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAll(ctx context.Context, role *models.Role) ([]*models.Account, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) FirstByRole(ctx context.Context, role models.Role) (*models.Account, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByRefID(ctx context.Context, refID uuid.UUID) ([]*models.Transaction, error) {
	args := m.Called(ctx, refID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockRequestRepository is a mock implementation of RequestRepository
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *models.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockRequestRepository) UpdateStatus(ctx context.Context, req *models.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRequestRepository) List(ctx context.Context, filter RequestFilter) ([]*models.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Request), args.Error(1)
}

// MockBonusRuleRepository is a mock implementation of BonusRuleRepository
type MockBonusRuleRepository struct {
	mock.Mock
}

func (m *MockBonusRuleRepository) GetActive(ctx context.Context, bonusType models.BonusType, at time.Time) (*models.BonusRule, error) {
	args := m.Called(ctx, bonusType, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BonusRule), args.Error(1)
}

func (m *MockBonusRuleRepository) Create(ctx context.Context, rule *models.BonusRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

// MockPaymentModeRepository is a mock implementation of PaymentModeRepository
type MockPaymentModeRepository struct {
	mock.Mock
}

func (m *MockPaymentModeRepository) HasApproved(ctx context.Context, accountID int64) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentModeRepository) Create(ctx context.Context, mode *models.PaymentMode) error {
	args := m.Called(ctx, mode)
	return args.Error(0)
}

// MockGameCatalogRepository is a mock implementation of GameCatalogRepository
type MockGameCatalogRepository struct {
	mock.Mock
}

func (m *MockGameCatalogRepository) EnsureProvider(ctx context.Context, code, name string) (*models.GameProvider, error) {
	args := m.Called(ctx, code, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameProvider), args.Error(1)
}

func (m *MockGameCatalogRepository) UpsertProvider(ctx context.Context, code, name string) (*models.GameProvider, error) {
	args := m.Called(ctx, code, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameProvider), args.Error(1)
}

func (m *MockGameCatalogRepository) EnsureCategory(ctx context.Context, name string) (*models.GameCategory, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameCategory), args.Error(1)
}

func (m *MockGameCatalogRepository) GetGameByUID(ctx context.Context, gameUID string) (*models.Game, error) {
	args := m.Called(ctx, gameUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameCatalogRepository) EnsureGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	args := m.Called(ctx, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameCatalogRepository) UpsertGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	args := m.Called(ctx, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

// MockGameLogRepository is a mock implementation of GameLogRepository
type MockGameLogRepository struct {
	mock.Mock
}

func (m *MockGameLogRepository) GetForUpdate(ctx context.Context, accountID int64, round string) (*models.GameLog, error) {
	args := m.Called(ctx, accountID, round)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameLog), args.Error(1)
}

func (m *MockGameLogRepository) Create(ctx context.Context, log *models.GameLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockGameLogRepository) Update(ctx context.Context, log *models.GameLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockGameLogRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.GameLog, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GameLog), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*models.SuperSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SuperSetting), args.Error(1)
}

func (m *MockSettingsRepository) Update(ctx context.Context, settings *models.SuperSetting) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockActivityLogRepository is a mock implementation of ActivityLogRepository
type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityLogRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.ActivityLog, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActivityLog), args.Error(1)
}

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ListForAccount(ctx context.Context, accountID int64, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

// RecordingEventPublisher collects published events so tests can inspect them
type RecordingEventPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// OfType returns the recorded events of one type
func (p *RecordingEventPublisher) OfType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.Events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and
// Rollback are mocked; the repository getters return the configured mocks.
type MockUnitOfWork struct {
	mock.Mock
	Accounts     *MockAccountRepository
	Transactions *MockTransactionRepository
	Requests     map[models.RequestKind]*MockRequestRepository
	BonusRules   *MockBonusRuleRepository
	PaymentModes *MockPaymentModeRepository
	Catalog      *MockGameCatalogRepository
	GameLogs     *MockGameLogRepository
	Settings     *MockSettingsRepository
	Activity     *MockActivityLogRepository
	Messages     *MockMessageRepository
	Events       *RecordingEventPublisher
}

// NewMockUnitOfWork returns a unit of work wired to fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Accounts:     new(MockAccountRepository),
		Transactions: new(MockTransactionRepository),
		Requests: map[models.RequestKind]*MockRequestRepository{
			models.RequestKindDeposit:  new(MockRequestRepository),
			models.RequestKindWithdraw: new(MockRequestRepository),
			models.RequestKindBonus:    new(MockRequestRepository),
		},
		BonusRules:   new(MockBonusRuleRepository),
		PaymentModes: new(MockPaymentModeRepository),
		Catalog:      new(MockGameCatalogRepository),
		GameLogs:     new(MockGameLogRepository),
		Settings:     new(MockSettingsRepository),
		Activity:     new(MockActivityLogRepository),
		Messages:     new(MockMessageRepository),
		Events:       new(RecordingEventPublisher),
	}
}

// ExpectLifecycle sets up Begin, Commit and Rollback to succeed
func (m *MockUnitOfWork) ExpectLifecycle(ctx context.Context) {
	m.On("Begin", ctx).Return(nil)
	m.On("Commit").Return(nil).Maybe()
	m.On("Rollback").Return(nil)
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository         { return m.Accounts }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository { return m.Transactions }
func (m *MockUnitOfWork) BonusRuleRepository() BonusRuleRepository     { return m.BonusRules }
func (m *MockUnitOfWork) PaymentModeRepository() PaymentModeRepository { return m.PaymentModes }
func (m *MockUnitOfWork) GameCatalogRepository() GameCatalogRepository { return m.Catalog }
func (m *MockUnitOfWork) GameLogRepository() GameLogRepository         { return m.GameLogs }
func (m *MockUnitOfWork) SettingsRepository() SettingsRepository       { return m.Settings }
func (m *MockUnitOfWork) ActivityLogRepository() ActivityLogRepository { return m.Activity }
func (m *MockUnitOfWork) MessageRepository() MessageRepository         { return m.Messages }
func (m *MockUnitOfWork) EventBus() EventPublisher                     { return m.Events }

func (m *MockUnitOfWork) RequestRepository(kind models.RequestKind) RequestRepository {
	return m.Requests[kind]
}

// AssertRepositories checks the expectations of every repository mock
func (m *MockUnitOfWork) AssertRepositories(t mock.TestingT) {
	m.Accounts.AssertExpectations(t)
	m.Transactions.AssertExpectations(t)
	for _, r := range m.Requests {
		r.AssertExpectations(t)
	}
	m.BonusRules.AssertExpectations(t)
	m.PaymentModes.AssertExpectations(t)
	m.Catalog.AssertExpectations(t)
	m.GameLogs.AssertExpectations(t)
	m.Settings.AssertExpectations(t)
	m.Activity.AssertExpectations(t)
	m.Messages.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockSettingsReader is a mock implementation of SettingsReader
type MockSettingsReader struct {
	mock.Mock
}

func (m *MockSettingsReader) Current(ctx context.Context) (*models.SuperSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SuperSetting), args.Error(1)
}

// MockSettingsCache is a mock implementation of SettingsCache
type MockSettingsCache struct {
	mock.Mock
}

func (m *MockSettingsCache) Get(ctx context.Context) (*models.SuperSetting, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.SuperSetting), args.Bool(1)
}

func (m *MockSettingsCache) Set(ctx context.Context, settings *models.SuperSetting) {
	m.Called(ctx, settings)
}

func (m *MockSettingsCache) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

// MockGameAPIClient is a mock implementation of GameAPIClient
type MockGameAPIClient struct {
	mock.Mock
}

func (m *MockGameAPIClient) LaunchGame(ctx context.Context, creds models.GameAPICredentials, params models.LaunchParams) (string, error) {
	args := m.Called(ctx, creds, params)
	return args.String(0), args.Error(1)
}

func (m *MockGameAPIClient) ListProviders(ctx context.Context, creds models.GameAPICredentials) ([]models.CatalogProvider, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogProvider), args.Error(1)
}

func (m *MockGameAPIClient) ListProviderGames(ctx context.Context, creds models.GameAPICredentials, providerCode string, count int) ([]models.CatalogGame, error) {
	args := m.Called(ctx, creds, providerCode, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogGame), args.Error(1)
}

// MockBonusGranter is a mock implementation of BonusGranter
type MockBonusGranter struct {
	mock.Mock
}

func (m *MockBonusGranter) GrantWelcome(ctx context.Context, accountID int64) (models.GrantResult, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(models.GrantResult), args.Error(1)
}

func (m *MockBonusGranter) GrantReferral(ctx context.Context, referrerID int64) (models.GrantResult, error) {
	args := m.Called(ctx, referrerID)
	return args.Get(0).(models.GrantResult), args.Error(1)
}
