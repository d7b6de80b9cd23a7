package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/events"
	"tierledger/models"
)

type accountService struct {
	uowFactory UnitOfWorkFactory
	grants     BonusGranter
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, grants BonusGranter) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		grants:     grants,
	}
}

// NewAccount carries the fields of an account created by the tier above
type NewAccount struct {
	Username             string
	Name                 string
	Password             string
	PIN                  string
	Role                 models.Role
	ExposureLimit        *decimal.Decimal
	CommissionPercentage *decimal.Decimal
}

// SignupInput carries a public Player registration
type SignupInput struct {
	Username     string
	Name         string
	Password     string
	ReferralCode string
	Client       models.ClientInfo
}

// SignupResult is the created account plus the outcome of its bonus grants
type SignupResult struct {
	Account  *models.Account
	Welcome  models.GrantResult
	Referral *models.GrantResult
}

func (s *accountService) CreateAccount(ctx context.Context, actorID int64, in NewAccount) (*models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, ErrUsernameRequired
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	accounts := uow.AccountRepository()
	actor, err := accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, ErrAccountNotFound
	}
	// The new account's parent is always the actor, one tier up
	if _, err := PolicyFor(actor.Role, in.Role, OpCreateAccount); err != nil {
		return nil, err
	}

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	account, err := s.insertAccount(ctx, uow, accountDraft{
		username:   in.Username,
		name:       in.Name,
		password:   in.Password,
		pin:        in.PIN,
		role:       in.Role,
		parentID:   &actor.ID,
		exposure:   in.ExposureLimit,
		commission: in.CommissionPercentage,
		settings:   settings,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID": account.ID,
		"username":  account.Username,
		"role":      account.Role,
		"actorID":   actor.ID,
	}).Info("Account created")

	return account, nil
}

func (s *accountService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, ErrUsernameRequired
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	accounts := uow.AccountRepository()
	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var parentID, referredByID *int64
	if code := strings.TrimSpace(in.ReferralCode); code != "" {
		referrer, err := accounts.GetByUsername(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to get referrer: %w", err)
		}
		// A referred player joins under the referrer's own Master
		if referrer != nil && referrer.Role == models.RolePlayer && referrer.ParentID != nil {
			parentID = referrer.ParentID
			referredByID = &referrer.ID
		}
	}
	if parentID == nil {
		master, err := defaultMaster(ctx, accounts, settings)
		if err != nil {
			return nil, err
		}
		parentID = &master.ID
	}

	account, err := s.insertAccount(ctx, uow, accountDraft{
		username:   in.Username,
		name:       in.Name,
		password:   in.Password,
		role:       models.RolePlayer,
		parentID:   parentID,
		referredBy: referredByID,
		settings:   settings,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result := &SignupResult{Account: account}
	fields := log.Fields{"accountID": account.ID, "username": account.Username}

	// Grants run after the account exists and never fail the signup
	welcome, err := s.grants.GrantWelcome(ctx, account.ID)
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Welcome bonus grant failed")
		welcome = models.GrantResult{AccountID: account.ID, Reason: "Grant failed"}
	} else if !welcome.Applied {
		log.WithFields(fields).WithField("reason", welcome.Reason).Info("Welcome bonus skipped")
	}
	result.Welcome = welcome

	if referredByID != nil {
		referral, err := s.grants.GrantReferral(ctx, *referredByID)
		if err != nil {
			log.WithFields(fields).WithError(err).Warn("Referral bonus grant failed")
			referral = models.GrantResult{AccountID: *referredByID, Reason: "Grant failed"}
		} else if !referral.Applied {
			log.WithFields(fields).WithField("reason", referral.Reason).Info("Referral bonus skipped")
		}
		result.Referral = &referral
	}

	log.WithFields(fields).WithField("parentID", *parentID).Info("Player signed up")
	return result, nil
}

// defaultMaster picks the configured default master, else the oldest master
func defaultMaster(ctx context.Context, accounts AccountRepository, settings *models.SuperSetting) (*models.Account, error) {
	if settings != nil && settings.DefaultMasterID != nil {
		master, err := accounts.GetByID(ctx, *settings.DefaultMasterID)
		if err != nil {
			return nil, fmt.Errorf("failed to get default master: %w", err)
		}
		if master != nil && master.Role == models.RoleMaster {
			return master, nil
		}
	}

	master, err := accounts.FirstByRole(ctx, models.RoleMaster)
	if err != nil {
		return nil, fmt.Errorf("failed to get first master: %w", err)
	}
	if master == nil {
		return nil, ErrNoDefaultMaster
	}
	return master, nil
}

type accountDraft struct {
	username   string
	name       string
	password   string
	pin        string
	role       models.Role
	parentID   *int64
	referredBy *int64
	exposure   *decimal.Decimal
	commission *decimal.Decimal
	settings   *models.SuperSetting
}

func (s *accountService) insertAccount(ctx context.Context, uow UnitOfWork, d accountDraft) (*models.Account, error) {
	accounts := uow.AccountRepository()

	existing, err := accounts.GetByUsername(ctx, d.username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(d.password)
	if err != nil {
		return nil, err
	}

	exposure := decimal.Zero
	switch {
	case d.exposure != nil:
		exposure = *d.exposure
	case d.settings != nil:
		exposure = d.settings.ExposureLimit
	}
	commission := models.DefaultCommissionPercentage
	if d.commission != nil {
		commission = *d.commission
	}

	account := &models.Account{
		Username:             d.username,
		Name:                 d.name,
		Role:                 d.role,
		ParentID:             d.parentID,
		ReferredByID:         d.referredBy,
		PasswordHash:         hash,
		PIN:                  d.pin,
		ExposureLimit:        exposure,
		CommissionPercentage: commission,
		IsActive:             true,
	}
	if err := accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	uow.EventBus().Publish(events.AccountCreatedEvent{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		ParentID:  account.ParentID,
	})
	return account, nil
}

// Authenticate checks a login and records it in the activity log
func (s *accountService) Authenticate(ctx context.Context, username, password string, client models.ClientInfo) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil || !passwordMatches(account, password) {
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, ErrInactiveAccount
	}

	if err := recordActivity(ctx, uow, account.ID, models.ActivityLogin, client, "", nil); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// ResetCredentials replaces a target's password and/or PIN on behalf of an actor above it
func (s *accountService) ResetCredentials(ctx context.Context, actorID, targetID int64, newPassword, newPIN string, cred Credential, client models.ClientInfo) error {
	if newPassword == "" && newPIN == "" {
		return newLedgerError(ErrValidation, "New password or PIN required.")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	actor, target, err := loadActorAndTarget(ctx, uow.AccountRepository(), actorID, targetID)
	if err != nil {
		return err
	}
	if err := authorize(ctx, uow.AccountRepository(), actor, target, OpResetCredential, cred); err != nil {
		return err
	}

	if newPassword != "" {
		hash, err := HashPassword(newPassword)
		if err != nil {
			return err
		}
		target.PasswordHash = hash
	}
	if newPIN != "" {
		target.PIN = newPIN
	}
	if err := uow.AccountRepository().UpdateCredentials(ctx, target); err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	remarks := fmt.Sprintf("Credentials reset by %s", actor.Username)
	if err := recordActivity(ctx, uow, target.ID, models.ActivityPasswordChange, client, remarks, nil); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"actorID":  actor.ID,
		"targetID": target.ID,
	}).Info("Credentials reset")
	return nil
}

// List returns the accounts visible to the actor. A Player sees only itself.
func (s *accountService) List(ctx context.Context, actorID int64, role *models.Role) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actor, err := uow.AccountRepository().GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, ErrAccountNotFound
	}
	if actor.Role == models.RolePlayer {
		return []*models.Account{actor}, nil
	}
	return scopedAccounts(ctx, uow.AccountRepository(), actor, role)
}

// Get returns one account if it is in the actor's scope
func (s *accountService) Get(ctx context.Context, actorID, accountID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actor, target, err := loadActorAndTarget(ctx, uow.AccountRepository(), actorID, accountID)
	if err != nil {
		return nil, err
	}
	if err := checkScope(ctx, uow.AccountRepository(), actor, target); err != nil {
		return nil, err
	}
	return target, nil
}

// History returns the recent ledger legs, rounds and activity of an account in scope
func (s *accountService) History(ctx context.Context, actorID, accountID int64, limit int) (*AccountHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actor, target, err := loadActorAndTarget(ctx, uow.AccountRepository(), actorID, accountID)
	if err != nil {
		return nil, err
	}
	if err := checkScope(ctx, uow.AccountRepository(), actor, target); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)
	history := &AccountHistory{Account: target}
	if history.Transactions, err = uow.TransactionRepository().ListByAccount(ctx, target.ID, limit); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if history.GameLogs, err = uow.GameLogRepository().ListByAccount(ctx, target.ID, limit); err != nil {
		return nil, fmt.Errorf("failed to list game logs: %w", err)
	}
	if history.Activity, err = uow.ActivityLogRepository().ListByAccount(ctx, target.ID, limit); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return history, nil
}

// AccountHistory groups the audit trails of one account
type AccountHistory struct {
	Account      *models.Account
	Transactions []*models.Transaction
	GameLogs     []*models.GameLog
	Activity     []*models.ActivityLog
}

func loadActorAndTarget(ctx context.Context, accounts AccountRepository, actorID, targetID int64) (*models.Account, *models.Account, error) {
	actor, err := accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, nil, ErrAccountNotFound
	}
	target, err := accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get account: %w", err)
	}
	if target == nil {
		return nil, nil, ErrAccountNotFound
	}
	return actor, target, nil
}
