package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

type settingsService struct {
	uowFactory UnitOfWorkFactory
	store      SettingsRepository
	cache      SettingsCache
}

// NewSettingsService creates the settings service. store serves reads
// outside any unit of work; cache may be nil.
func NewSettingsService(uowFactory UnitOfWorkFactory, store SettingsRepository, cache SettingsCache) SettingsService {
	return &settingsService{
		uowFactory: uowFactory,
		store:      store,
		cache:      cache,
	}
}

// Current returns the settings row, read through the cache
func (s *settingsService) Current(ctx context.Context) (*models.SuperSetting, error) {
	if s.cache != nil {
		if settings, ok := s.cache.Get(ctx); ok {
			return settings, nil
		}
	}

	settings, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		return nil, ErrSettingsNotFound
	}

	if s.cache != nil {
		s.cache.Set(ctx, settings)
	}
	return settings, nil
}

// Update overwrites the settings row and drops the cached copy
func (s *settingsService) Update(ctx context.Context, actorID int64, settings *models.SuperSetting, cred Credential) (*models.SuperSetting, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	actor, err := uow.AccountRepository().GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, ErrAccountNotFound
	}
	policy, err := PolicyFor(actor.Role, actor.Role, OpUpdateSettings)
	if err != nil {
		return nil, err
	}
	if err := VerifyCredential(actor, policy, cred); err != nil {
		return nil, err
	}

	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	if settings.DefaultMasterID != nil {
		master, err := uow.AccountRepository().GetByID(ctx, *settings.DefaultMasterID)
		if err != nil {
			return nil, fmt.Errorf("failed to get default master: %w", err)
		}
		if master == nil || master.Role != models.RoleMaster {
			return nil, newLedgerError(ErrValidation, "Default master must be a master account.")
		}
	}

	if err := uow.SettingsRepository().Update(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	log.WithField("actorID", actor.ID).Info("Settings updated")
	return settings, nil
}

func validateSettings(s *models.SuperSetting) error {
	for _, v := range []struct {
		name  string
		value interface{ IsNegative() bool }
	}{
		{"ggr_coin", s.GGRCoin},
		{"min_withdraw", s.MinWithdraw},
		{"max_withdraw", s.MaxWithdraw},
		{"min_deposit", s.MinDeposit},
		{"max_deposit", s.MaxDeposit},
		{"exposure_limit", s.ExposureLimit},
	} {
		if v.value.IsNegative() {
			return newLedgerError(ErrValidation, fmt.Sprintf("%s cannot be negative.", v.name))
		}
	}
	if s.MaxWithdraw.IsPositive() && s.MinWithdraw.GreaterThan(s.MaxWithdraw) {
		return newLedgerError(ErrValidation, "min_withdraw cannot exceed max_withdraw.")
	}
	if s.MaxDeposit.IsPositive() && s.MinDeposit.GreaterThan(s.MaxDeposit) {
		return newLedgerError(ErrValidation, "min_deposit cannot exceed max_deposit.")
	}
	return nil
}
