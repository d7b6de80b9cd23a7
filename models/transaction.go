package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActionType is the direction of a ledger leg
type ActionType string

const (
	ActionIn  ActionType = "in"
	ActionOut ActionType = "out"
)

// TransactionType classifies what caused a ledger leg
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdraw   TransactionType = "withdraw"
	TransactionTypeBonus      TransactionType = "bonus"
	TransactionTypeBetPlaced  TransactionType = "bet_placed"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePL         TransactionType = "pl"
	TransactionTypeExposure   TransactionType = "exposure"
	TransactionTypeSettlement TransactionType = "settlement"
)

// TransactionStatus is the outcome recorded on a ledger leg
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction is one immutable leg of a balance movement.
// Both legs of a two-account movement share RefID.
type Transaction struct {
	ID            int64               `db:"id"`
	RefID         uuid.UUID           `db:"ref_id"`
	AccountID     int64               `db:"account_id"`
	ActionType    ActionType          `db:"action_type"`
	Wallet        Wallet              `db:"wallet"`
	Type          TransactionType     `db:"transaction_type"`
	Amount        decimal.Decimal     `db:"amount"`
	Status        TransactionStatus   `db:"status"`
	FromAccountID *int64              `db:"from_account_id"`
	ToAccountID   *int64              `db:"to_account_id"`
	BalanceBefore decimal.NullDecimal `db:"balance_before"`
	BalanceAfter  decimal.NullDecimal `db:"balance_after"`
	Remarks       string              `db:"remarks"`
	CreatedAt     time.Time           `db:"created_at"`
}
