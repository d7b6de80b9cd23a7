package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/events"
	"tierledger/models"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
	}
}

// SettlementResult reports what a settlement moved
type SettlementResult struct {
	SuperID          int64
	MasterID         int64
	Amount           decimal.Decimal
	PLCleared        decimal.Decimal
	SuperBalanceNow  decimal.Decimal
	MasterBalanceNow decimal.Decimal
}

// Settle sweeps a Master's whole main balance up to its Super and zeroes its P/L
func (s *settlementService) Settle(ctx context.Context, superID, masterID int64, cred Credential) (*SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	accounts := uow.AccountRepository()
	actor, err := accounts.GetByID(ctx, superID)
	if err != nil {
		return nil, fmt.Errorf("failed to get super: %w", err)
	}
	if actor == nil {
		return nil, ErrAccountNotFound
	}
	if actor.Role != models.RoleSuper {
		return nil, ErrRoleNotPermitted
	}

	master, err := accounts.GetByID(ctx, masterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get master: %w", err)
	}
	if master == nil || master.Role != models.RoleMaster || !master.IsChildOf(actor) {
		return nil, ErrInvalidRelationship
	}

	policy, err := PolicyFor(actor.Role, master.Role, OpSettle)
	if err != nil {
		return nil, err
	}
	if err := VerifyCredential(actor, policy, cred); err != nil {
		return nil, err
	}

	locked, err := accounts.LockAccounts(ctx, actor.ID, master.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	super, master := locked[actor.ID], locked[master.ID]
	if super == nil || master == nil {
		return nil, ErrAccountNotFound
	}

	amount := master.MainBalance
	plCleared := master.PLBalance
	// P/L is a periodic accumulator and is not carried past a settlement
	master.PLBalance = decimal.Zero

	if _, err := TransferFunds(ctx, uow, Movement{
		From:       master,
		FromWallet: models.WalletMain,
		To:         super,
		ToWallet:   models.WalletMain,
		Amount:     amount,
		Type:       models.TransactionTypeSettlement,
		OutRemarks: "Settlement to super",
		InRemarks:  fmt.Sprintf("Settlement from master %s", master.Username),
	}); err != nil {
		return nil, fmt.Errorf("failed to move settlement funds: %w", err)
	}

	uow.EventBus().Publish(events.SettlementCompletedEvent{
		SuperID:   super.ID,
		MasterID:  master.ID,
		Amount:    amount,
		PLCleared: plCleared,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"superID":   super.ID,
		"masterID":  master.ID,
		"amount":    amount.StringFixed(2),
		"plCleared": plCleared.StringFixed(2),
	}).Info("Settlement completed")

	return &SettlementResult{
		SuperID:          super.ID,
		MasterID:         master.ID,
		Amount:           amount,
		PLCleared:        plCleared,
		SuperBalanceNow:  super.MainBalance,
		MasterBalanceNow: master.MainBalance,
	}, nil
}
