package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

type transferService struct {
	uowFactory UnitOfWorkFactory
}

// NewTransferService creates a new transfer service
func NewTransferService(uowFactory UnitOfWorkFactory) TransferService {
	return &transferService{
		uowFactory: uowFactory,
	}
}

// TransferResult is the outcome of a peer transfer as seen by the sender
type TransferResult struct {
	Amount        decimal.Decimal
	RecipientName string
	NewBalance    decimal.Decimal
}

// Transfer moves main balance from one Player to another by username.
// Checks run in a fixed order: password, recipient, amount, balance.
func (s *transferService) Transfer(ctx context.Context, senderID int64, recipientUsername string, amount decimal.Decimal, password string, client models.ClientInfo) (*TransferResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	accounts := uow.AccountRepository()
	sender, err := accounts.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}
	if sender == nil {
		return nil, ErrAccountNotFound
	}
	if err := VerifyCredential(sender, CredentialPassword, Credential{Password: password}); err != nil {
		return nil, err
	}

	recipient, err := accounts.GetByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}
	if recipient == nil {
		return nil, ErrUserNotFound
	}
	if recipient.ID == sender.ID {
		return nil, ErrSelfTransfer
	}
	if _, err := PolicyFor(sender.Role, recipient.Role, OpTransfer); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	locked, err := accounts.LockAccounts(ctx, sender.ID, recipient.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	from, to := locked[sender.ID], locked[recipient.ID]
	if from == nil || to == nil {
		return nil, ErrAccountNotFound
	}
	if !from.CanCover(models.WalletMain, amount) {
		return nil, ErrInsufficientBalance
	}

	if _, err := TransferFunds(ctx, uow, Movement{
		From:       from,
		FromWallet: models.WalletMain,
		To:         to,
		ToWallet:   models.WalletMain,
		Amount:     amount,
		Type:       models.TransactionTypeTransfer,
		OutRemarks: fmt.Sprintf("Transfer to %s", to.Username),
		InRemarks:  fmt.Sprintf("Transfer from %s", from.Username),
	}); err != nil {
		return nil, err
	}

	remarks := fmt.Sprintf("Transferred %s to %s", amount.StringFixed(2), to.Username)
	if err := recordActivity(ctx, uow, from.ID, models.ActivityTransferCoin, client, remarks, nil); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"senderID":    from.ID,
		"recipientID": to.ID,
		"amount":      amount.StringFixed(2),
	}).Info("Transfer completed")

	return &TransferResult{
		Amount:        amount,
		RecipientName: to.Username,
		NewBalance:    from.MainBalance,
	}, nil
}
