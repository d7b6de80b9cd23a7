package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"tierledger/events"
	"tierledger/models"
)

// Movement describes value moving from one account wallet to another
type Movement struct {
	From       *models.Account
	FromWallet models.Wallet
	To         *models.Account
	ToWallet   models.Wallet
	Amount     decimal.Decimal
	Type       models.TransactionType
	OutRemarks string
	InRemarks  string
}

// RecordBalanceChange appends a ledger leg and emits its event.
// This is the single entry point for all ledger writes in the system.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, tx *models.Transaction) error {
	if err := uow.TransactionRepository().Create(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	// Flushed only after the unit of work commits
	uow.EventBus().Publish(events.BalanceChangedEvent{
		AccountID:       tx.AccountID,
		RefID:           tx.RefID,
		Wallet:          tx.Wallet,
		Action:          tx.ActionType,
		TransactionType: tx.Type,
		Amount:          tx.Amount,
		BalanceBefore:   tx.BalanceBefore.Decimal,
		BalanceAfter:    tx.BalanceAfter.Decimal,
	})
	return nil
}

// TransferFunds debits the source, credits the destination, persists both
// accounts and writes the paired out/in legs under one reference ID.
// Both accounts must already be row-locked by the caller.
func TransferFunds(ctx context.Context, uow UnitOfWork, m Movement) (uuid.UUID, error) {
	if m.Amount.IsNegative() {
		return uuid.Nil, ErrInvalidAmount
	}

	fromBefore, fromAfter, err := m.From.Debit(m.FromWallet, m.Amount)
	if err != nil {
		return uuid.Nil, ErrInsufficientBalance
	}
	toBefore, toAfter := m.To.Credit(m.ToWallet, m.Amount)

	accounts := uow.AccountRepository()
	if err := accounts.UpdateWallets(ctx, m.From); err != nil {
		return uuid.Nil, fmt.Errorf("failed to update source wallets: %w", err)
	}
	if err := accounts.UpdateWallets(ctx, m.To); err != nil {
		return uuid.Nil, fmt.Errorf("failed to update destination wallets: %w", err)
	}

	refID := uuid.New()
	out := &models.Transaction{
		RefID:         refID,
		AccountID:     m.From.ID,
		ActionType:    models.ActionOut,
		Wallet:        m.FromWallet,
		Type:          m.Type,
		Amount:        m.Amount,
		Status:        models.TransactionStatusSuccess,
		ToAccountID:   &m.To.ID,
		BalanceBefore: decimal.NewNullDecimal(fromBefore),
		BalanceAfter:  decimal.NewNullDecimal(fromAfter),
		Remarks:       m.OutRemarks,
	}
	in := &models.Transaction{
		RefID:         refID,
		AccountID:     m.To.ID,
		ActionType:    models.ActionIn,
		Wallet:        m.ToWallet,
		Type:          m.Type,
		Amount:        m.Amount,
		Status:        models.TransactionStatusSuccess,
		FromAccountID: &m.From.ID,
		BalanceBefore: decimal.NewNullDecimal(toBefore),
		BalanceAfter:  decimal.NewNullDecimal(toAfter),
		Remarks:       m.InRemarks,
	}

	if err := RecordBalanceChange(ctx, uow, out); err != nil {
		return uuid.Nil, err
	}
	if err := RecordBalanceChange(ctx, uow, in); err != nil {
		return uuid.Nil, err
	}
	return refID, nil
}

// CreditAccount adds amount to a single wallet with no counterparty.
// Used where value enters the hierarchy at the root.
func CreditAccount(ctx context.Context, uow UnitOfWork, account *models.Account, wallet models.Wallet, amount decimal.Decimal, txType models.TransactionType, remarks string) (*models.Transaction, error) {
	before, after := account.Credit(wallet, amount)
	return recordSingleLeg(ctx, uow, account, models.ActionIn, wallet, amount, txType, remarks, before, after)
}

// DebitAccount removes amount from a single wallet with no counterparty
func DebitAccount(ctx context.Context, uow UnitOfWork, account *models.Account, wallet models.Wallet, amount decimal.Decimal, txType models.TransactionType, remarks string) (*models.Transaction, error) {
	before, after, err := account.Debit(wallet, amount)
	if err != nil {
		return nil, ErrInsufficientBalance
	}
	return recordSingleLeg(ctx, uow, account, models.ActionOut, wallet, amount, txType, remarks, before, after)
}

func recordSingleLeg(ctx context.Context, uow UnitOfWork, account *models.Account, action models.ActionType, wallet models.Wallet, amount decimal.Decimal, txType models.TransactionType, remarks string, before, after decimal.Decimal) (*models.Transaction, error) {
	if err := uow.AccountRepository().UpdateWallets(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update wallets: %w", err)
	}

	tx := &models.Transaction{
		RefID:         uuid.New(),
		AccountID:     account.ID,
		ActionType:    action,
		Wallet:        wallet,
		Type:          txType,
		Amount:        amount,
		Status:        models.TransactionStatusSuccess,
		BalanceBefore: decimal.NewNullDecimal(before),
		BalanceAfter:  decimal.NewNullDecimal(after),
		Remarks:       remarks,
	}
	if err := RecordBalanceChange(ctx, uow, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// recordActivity appends an audit entry, truncating free-text fields to their column sizes
func recordActivity(ctx context.Context, uow UnitOfWork, accountID int64, action models.ActivityAction, client models.ClientInfo, remarks string, gameID *int64) error {
	entry := &models.ActivityLog{
		AccountID: &accountID,
		IP:        truncate(client.IP, models.MaxActivityIPLength),
		Device:    truncate(client.Device, models.MaxActivityDeviceLength),
		GameID:    gameID,
		Action:    action,
		Remarks:   truncate(remarks, models.MaxActivityRemarksLength),
	}
	if err := uow.ActivityLogRepository().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
