package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"tierledger/events"
	"tierledger/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by ID, nil when absent
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByUsername retrieves an account by exact username, nil when absent
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	// GetByIDForUpdate retrieves and row-locks an account for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)

	// LockAccounts row-locks several accounts in ascending ID order.
	// Missing IDs are absent from the returned map.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error)

	// Create inserts a new account and fills its ID and timestamps
	Create(ctx context.Context, account *models.Account) error

	// UpdateWallets persists all four wallet balances of the account
	UpdateWallets(ctx context.Context, account *models.Account) error

	// UpdateCredentials persists the password hash and PIN of the account
	UpdateCredentials(ctx context.Context, account *models.Account) error

	// ListByParent returns the direct children of parentID, optionally filtered by role
	ListByParent(ctx context.Context, parentID int64, role *models.Role) ([]*models.Account, error)

	// ListByGrandparent returns accounts whose parent's parent is grandparentID
	ListByGrandparent(ctx context.Context, grandparentID int64) ([]*models.Account, error)

	// ListAll returns every account, optionally filtered by role
	ListAll(ctx context.Context, role *models.Role) ([]*models.Account, error)

	// FirstByRole returns the oldest account with the given role
	FirstByRole(ctx context.Context, role models.Role) (*models.Account, error)
}

// TransactionRepository defines the interface for the append-only ledger
type TransactionRepository interface {
	// Create appends a ledger leg and fills its ID and CreatedAt
	Create(ctx context.Context, tx *models.Transaction) error

	// ListByAccount returns the most recent legs of an account
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)

	// ListByRefID returns every leg sharing a reference ID
	ListByRefID(ctx context.Context, refID uuid.UUID) ([]*models.Transaction, error)
}

// RequestFilter narrows a request listing
type RequestFilter struct {
	AccountIDs []int64 // nil means any account
	Status     *models.RequestStatus
	Limit      int
}

// RequestRepository defines the interface for one kind of request envelope
type RequestRepository interface {
	// Create inserts a pending request and fills its ID and timestamps
	Create(ctx context.Context, req *models.Request) error

	// GetByID retrieves a request, nil when absent
	GetByID(ctx context.Context, id int64) (*models.Request, error)

	// GetByIDForUpdate retrieves and row-locks a request
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error)

	// UpdateStatus persists status, reject reason and processing fields
	UpdateStatus(ctx context.Context, req *models.Request) error

	// List returns requests matching the filter, newest first
	List(ctx context.Context, filter RequestFilter) ([]*models.Request, error)
}

// BonusRuleRepository defines the interface for bonus rule lookups
type BonusRuleRepository interface {
	// GetActive returns the newest active rule of the type valid at the given time
	GetActive(ctx context.Context, bonusType models.BonusType, at time.Time) (*models.BonusRule, error)

	// Create inserts a rule
	Create(ctx context.Context, rule *models.BonusRule) error
}

// PaymentModeRepository defines the interface for payout destinations
type PaymentModeRepository interface {
	// HasApproved reports whether the account has at least one approved payment mode
	HasApproved(ctx context.Context, accountID int64) (bool, error)

	// Create inserts a payment mode
	Create(ctx context.Context, mode *models.PaymentMode) error
}

// GameCatalogRepository defines the interface for providers, categories and games
type GameCatalogRepository interface {
	// EnsureProvider returns the provider with code, creating it with name if absent
	EnsureProvider(ctx context.Context, code, name string) (*models.GameProvider, error)

	// UpsertProvider creates the provider or refreshes its name
	UpsertProvider(ctx context.Context, code, name string) (*models.GameProvider, error)

	// EnsureCategory returns the category with name, creating it if absent
	EnsureCategory(ctx context.Context, name string) (*models.GameCategory, error)

	// GetGameByUID retrieves a game, nil when absent
	GetGameByUID(ctx context.Context, gameUID string) (*models.Game, error)

	// EnsureGame returns the game with game.GameUID, creating it from game if absent
	EnsureGame(ctx context.Context, game *models.Game) (*models.Game, error)

	// UpsertGame creates the game or refreshes its catalog fields
	UpsertGame(ctx context.Context, game *models.Game) (*models.Game, error)
}

// GameLogRepository defines the interface for settled rounds
type GameLogRepository interface {
	// GetForUpdate retrieves and row-locks the log for (accountID, round), nil when absent
	GetForUpdate(ctx context.Context, accountID int64, round string) (*models.GameLog, error)

	// Create inserts a log and fills its ID and timestamps
	Create(ctx context.Context, log *models.GameLog) error

	// Update overwrites the mutable fields of an existing log
	Update(ctx context.Context, log *models.GameLog) error

	// ListByAccount returns the most recent rounds of an account
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.GameLog, error)
}

// SettingsRepository defines the interface for the settings singleton
type SettingsRepository interface {
	// Get returns the settings row, nil when absent
	Get(ctx context.Context) (*models.SuperSetting, error)

	// Update overwrites the settings row
	Update(ctx context.Context, settings *models.SuperSetting) error
}

// ActivityLogRepository defines the interface for the audit trail
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.ActivityLog, error)
}

// MessageRepository defines the interface for direct messages
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListForAccount(ctx context.Context, accountID int64, limit int) ([]*models.Message, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork manages one database transaction and the repositories bound to it
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() AccountRepository
	TransactionRepository() TransactionRepository
	RequestRepository(kind models.RequestKind) RequestRepository
	BonusRuleRepository() BonusRuleRepository
	PaymentModeRepository() PaymentModeRepository
	GameCatalogRepository() GameCatalogRepository
	GameLogRepository() GameLogRepository
	SettingsRepository() SettingsRepository
	ActivityLogRepository() ActivityLogRepository
	MessageRepository() MessageRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// SettingsCache holds the settings row between reads
type SettingsCache interface {
	Get(ctx context.Context) (*models.SuperSetting, bool)
	Set(ctx context.Context, settings *models.SuperSetting)
	Invalidate(ctx context.Context)
}

// GameAPIClient is the outbound client of the external game provider
type GameAPIClient interface {
	// LaunchGame returns the provider URL the player is redirected to
	LaunchGame(ctx context.Context, creds models.GameAPICredentials, params models.LaunchParams) (string, error)

	// ListProviders returns the providers offered upstream
	ListProviders(ctx context.Context, creds models.GameAPICredentials) ([]models.CatalogProvider, error)

	// ListProviderGames returns up to count games of one provider
	ListProviderGames(ctx context.Context, creds models.GameAPICredentials, providerCode string, count int) ([]models.CatalogGame, error)
}

// ApprovalService manages the deposit, withdraw and bonus request lifecycle
type ApprovalService interface {
	// Create opens a pending request owned by in.OwnerID
	Create(ctx context.Context, in NewRequest) (*models.Request, error)

	// Approve applies the request's balance movement and marks it approved
	Approve(ctx context.Context, kind models.RequestKind, actorID, requestID int64, cred Credential) (*models.Request, error)

	// Reject marks a pending request rejected with no balance effect
	Reject(ctx context.Context, kind models.RequestKind, actorID, requestID int64, reason string, cred Credential) (*models.Request, error)

	// Cancel lets the owner withdraw its own pending request
	Cancel(ctx context.Context, kind models.RequestKind, ownerID, requestID int64) (*models.Request, error)

	// DirectDeposit creates and approves a deposit for targetID in one step
	DirectDeposit(ctx context.Context, actorID, targetID int64, amount decimal.Decimal, cred Credential) (*models.Request, error)

	// DirectWithdraw creates and approves a withdraw for targetID in one step
	DirectWithdraw(ctx context.Context, actorID, targetID int64, amount decimal.Decimal, cred Credential) (*models.Request, error)

	// List returns the requests of one kind visible to the actor
	List(ctx context.Context, kind models.RequestKind, actorID int64, status *models.RequestStatus, limit int) ([]*models.Request, error)
}

// SettlementService settles a Master's balance and P/L up to its Super
type SettlementService interface {
	Settle(ctx context.Context, superID, masterID int64, cred Credential) (*SettlementResult, error)
}

// TransferService moves main balance between Players
type TransferService interface {
	Transfer(ctx context.Context, senderID int64, recipientUsername string, amount decimal.Decimal, password string, client models.ClientInfo) (*TransferResult, error)
}

// CallbackService settles provider round results
type CallbackService interface {
	SettleRound(ctx context.Context, in RoundResult) (*RoundOutcome, error)
}

// SettingsReader returns the current platform settings
type SettingsReader interface {
	Current(ctx context.Context) (*models.SuperSetting, error)
}

// SettingsService reads and updates the platform settings
type SettingsService interface {
	SettingsReader
	Update(ctx context.Context, actorID int64, settings *models.SuperSetting, cred Credential) (*models.SuperSetting, error)
}

// BonusGranter pays the automatic signup bonuses
type BonusGranter interface {
	GrantWelcome(ctx context.Context, accountID int64) (models.GrantResult, error)
	GrantReferral(ctx context.Context, referrerID int64) (models.GrantResult, error)
}

// AccountService manages accounts, signup, login and scoped reads
type AccountService interface {
	CreateAccount(ctx context.Context, actorID int64, in NewAccount) (*models.Account, error)
	Signup(ctx context.Context, in SignupInput) (*SignupResult, error)
	Authenticate(ctx context.Context, username, password string, client models.ClientInfo) (*models.Account, error)
	ResetCredentials(ctx context.Context, actorID, targetID int64, newPassword, newPIN string, cred Credential, client models.ClientInfo) error
	List(ctx context.Context, actorID int64, role *models.Role) ([]*models.Account, error)
	Get(ctx context.Context, actorID, accountID int64) (*models.Account, error)
	History(ctx context.Context, actorID, accountID int64, limit int) (*AccountHistory, error)
}

// LaunchService opens provider game sessions for Players
type LaunchService interface {
	Launch(ctx context.Context, playerID int64, gameUID string, client models.ClientInfo) (string, error)
}

// CatalogService mirrors the provider catalog into the local tables
type CatalogService interface {
	Sync(ctx context.Context, actorID int64) (*CatalogSyncResult, error)
}

// MessageService sends and lists direct messages
type MessageService interface {
	Send(ctx context.Context, senderID, receiverID int64, body string, client models.ClientInfo) (*models.Message, error)
	List(ctx context.Context, accountID int64, limit int) ([]*models.Message, error)
}
