package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"tierledger/database"
	"tierledger/events"
	"tierledger/models"
	"tierledger/service"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      service.AccountRepository
	transactionRepo  service.TransactionRepository
	requestRepos     map[models.RequestKind]service.RequestRepository
	bonusRuleRepo    service.BonusRuleRepository
	paymentModeRepo  service.PaymentModeRepository
	gameCatalogRepo  service.GameCatalogRepository
	gameLogRepo      service.GameLogRepository
	settingsRepo     service.SettingsRepository
	activityLogRepo  service.ActivityLogRepository
	messageRepo      service.MessageRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginLedgerTx(ctx)
	if err != nil {
		return err
	}

	requestRepos := make(map[models.RequestKind]service.RequestRepository, len(requestTables))
	for kind := range requestTables {
		repo, err := newRequestRepositoryWithTx(tx, kind)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		requestRepos[kind] = repo
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.requestRepos = requestRepos
	u.bonusRuleRepo = newBonusRuleRepositoryWithTx(tx)
	u.paymentModeRepo = newPaymentModeRepositoryWithTx(tx)
	u.gameCatalogRepo = newGameCatalogRepositoryWithTx(tx)
	u.gameLogRepo = newGameLogRepositoryWithTx(tx)
	u.settingsRepo = newSettingsRepositoryWithTx(tx)
	u.activityLogRepo = newActivityLogRepositoryWithTx(tx)
	u.messageRepo = newMessageRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

func notStarted() {
	panic("unit of work not started - call Begin() first")
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		notStarted()
	}
	return u.accountRepo
}

// TransactionRepository returns the ledger repository for this unit of work
func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		notStarted()
	}
	return u.transactionRepo
}

// RequestRepository returns the envelope repository of one request kind
func (u *unitOfWork) RequestRepository(kind models.RequestKind) service.RequestRepository {
	if u.requestRepos == nil {
		notStarted()
	}
	repo, ok := u.requestRepos[kind]
	if !ok {
		panic(fmt.Sprintf("unknown request kind %q", kind))
	}
	return repo
}

func (u *unitOfWork) BonusRuleRepository() service.BonusRuleRepository {
	if u.bonusRuleRepo == nil {
		notStarted()
	}
	return u.bonusRuleRepo
}

func (u *unitOfWork) PaymentModeRepository() service.PaymentModeRepository {
	if u.paymentModeRepo == nil {
		notStarted()
	}
	return u.paymentModeRepo
}

func (u *unitOfWork) GameCatalogRepository() service.GameCatalogRepository {
	if u.gameCatalogRepo == nil {
		notStarted()
	}
	return u.gameCatalogRepo
}

func (u *unitOfWork) GameLogRepository() service.GameLogRepository {
	if u.gameLogRepo == nil {
		notStarted()
	}
	return u.gameLogRepo
}

func (u *unitOfWork) SettingsRepository() service.SettingsRepository {
	if u.settingsRepo == nil {
		notStarted()
	}
	return u.settingsRepo
}

func (u *unitOfWork) ActivityLogRepository() service.ActivityLogRepository {
	if u.activityLogRepo == nil {
		notStarted()
	}
	return u.activityLogRepo
}

func (u *unitOfWork) MessageRepository() service.MessageRepository {
	if u.messageRepo == nil {
		notStarted()
	}
	return u.messageRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		notStarted()
	}
	return u.transactionalBus
}
