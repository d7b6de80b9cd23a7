package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BonusType string

const (
	BonusTypeWelcome  BonusType = "welcome"
	BonusTypeDeposit  BonusType = "deposit"
	BonusTypeReferral BonusType = "referral"
)

type RewardType string

const (
	RewardTypeFlat       RewardType = "flat"
	RewardTypePercentage RewardType = "percentage"
)

// BonusRule configures an automatic bonus grant
type BonusRule struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	BonusType    BonusType       `db:"bonus_type"`
	PromoCode    *string         `db:"promo_code"`
	RewardType   RewardType      `db:"reward_type"`
	RewardAmount decimal.Decimal `db:"reward_amount"`
	RollRequired int             `db:"roll_required"`
	IsActive     bool            `db:"is_active"`
	ValidFrom    *time.Time      `db:"valid_from"`
	ValidUntil   *time.Time      `db:"valid_until"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// FlatReward returns the amount a signup grant pays out. Percentage rules
// have no base amount at signup, so they yield zero.
func (r *BonusRule) FlatReward() decimal.Decimal {
	if r.RewardType != RewardTypeFlat {
		return decimal.Zero
	}
	return r.RewardAmount
}

// GrantResult reports the outcome of a best-effort bonus grant.
// Callers may inspect it but a skipped grant is never an error.
type GrantResult struct {
	Applied   bool
	Amount    decimal.Decimal
	Reason    string
	AccountID int64
}
