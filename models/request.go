package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestKind selects which request envelope table a request lives in
type RequestKind string

const (
	RequestKindDeposit  RequestKind = "deposit"
	RequestKindWithdraw RequestKind = "withdraw"
	RequestKindBonus    RequestKind = "bonus"
)

// Valid reports whether k is a known request kind
func (k RequestKind) Valid() bool {
	switch k {
	case RequestKindDeposit, RequestKindWithdraw, RequestKindBonus:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a request envelope
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// Request is a deposit, withdraw or bonus request. Only pending requests
// may transition; every other status is terminal.
type Request struct {
	ID            int64           `db:"id"`
	Kind          RequestKind     `db:"-"`
	AccountID     int64           `db:"account_id"`
	Amount        decimal.Decimal `db:"amount"`
	PaymentModeID *int64          `db:"payment_mode_id"`
	Status        RequestStatus   `db:"status"`
	RejectReason  string          `db:"reject_reason"`
	Remarks       string          `db:"remarks"`
	ProcessedBy   *int64          `db:"processed_by"`
	ProcessedAt   *time.Time      `db:"processed_at"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// IsPending reports whether the request can still be approved, rejected or cancelled
func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

// MarkProcessed moves the request to a terminal status on behalf of actorID
func (r *Request) MarkProcessed(status RequestStatus, actorID int64, at time.Time) {
	r.Status = status
	r.ProcessedBy = &actorID
	r.ProcessedAt = &at
}
