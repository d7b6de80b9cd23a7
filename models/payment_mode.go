package models

import "time"

type PaymentModeType string

const (
	PaymentModeEWallet PaymentModeType = "ewallet"
	PaymentModeBank    PaymentModeType = "bank"
)

type PaymentModeStatus string

const (
	PaymentModeApproved PaymentModeStatus = "approved"
	PaymentModePending  PaymentModeStatus = "pending"
	PaymentModeRejected PaymentModeStatus = "rejected"
)

// PaymentMode is a payout destination registered by an account
type PaymentMode struct {
	ID                    int64             `db:"id"`
	AccountID             int64             `db:"account_id"`
	Name                  string            `db:"name"`
	Type                  PaymentModeType   `db:"type"`
	WalletPhone           string            `db:"wallet_phone"`
	BankName              string            `db:"bank_name"`
	BankBranch            string            `db:"bank_branch"`
	BankAccountNo         string            `db:"bank_account_no"`
	BankAccountHolderName string            `db:"bank_account_holder_name"`
	Status                PaymentModeStatus `db:"status"`
	RejectReason          string            `db:"reject_reason"`
	ActionBy              *int64            `db:"action_by"`
	CreatedAt             time.Time         `db:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at"`
}
