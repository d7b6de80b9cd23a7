package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCommissionPercentage is applied to new accounts when none is given
var DefaultCommissionPercentage = decimal.NewFromInt(10)

// Wallet names one of an account's balance fields
type Wallet string

const (
	WalletMain     Wallet = "main_balance"
	WalletBonus    Wallet = "bonus_balance"
	WalletPL       Wallet = "pl_balance"
	WalletExposure Wallet = "exposure_balance"
)

// Account is a user in the role hierarchy that also holds the four wallets
type Account struct {
	ID                   int64           `db:"id"`
	Username             string          `db:"username"`
	Name                 string          `db:"name"`
	Role                 Role            `db:"role"`
	ParentID             *int64          `db:"parent_id"`
	ReferredByID         *int64          `db:"referred_by_id"`
	PasswordHash         string          `db:"password_hash"`
	PIN                  string          `db:"pin"`
	MainBalance          decimal.Decimal `db:"main_balance"`
	BonusBalance         decimal.Decimal `db:"bonus_balance"`
	PLBalance            decimal.Decimal `db:"pl_balance"`
	ExposureBalance      decimal.Decimal `db:"exposure_balance"`
	ExposureLimit        decimal.Decimal `db:"exposure_limit"`
	CommissionPercentage decimal.Decimal `db:"commission_percentage"`
	IsActive             bool            `db:"is_active"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

// HasParent reports whether the account has a parent reference
func (a *Account) HasParent() bool {
	return a.ParentID != nil
}

// IsChildOf reports whether parent is this account's direct parent
func (a *Account) IsChildOf(parent *Account) bool {
	return parent != nil && a.ParentID != nil && *a.ParentID == parent.ID
}

// Balance returns the value held in the given wallet
func (a *Account) Balance(w Wallet) decimal.Decimal {
	switch w {
	case WalletMain:
		return a.MainBalance
	case WalletBonus:
		return a.BonusBalance
	case WalletPL:
		return a.PLBalance
	case WalletExposure:
		return a.ExposureBalance
	}
	return decimal.Zero
}

// SetBalance overwrites the given wallet
func (a *Account) SetBalance(w Wallet, v decimal.Decimal) {
	switch w {
	case WalletMain:
		a.MainBalance = v
	case WalletBonus:
		a.BonusBalance = v
	case WalletPL:
		a.PLBalance = v
	case WalletExposure:
		a.ExposureBalance = v
	}
}

// CanCover reports whether the wallet holds at least amount
func (a *Account) CanCover(w Wallet, amount decimal.Decimal) bool {
	return a.Balance(w).GreaterThanOrEqual(amount)
}

// Credit adds amount to the wallet and returns the balance before and after
func (a *Account) Credit(w Wallet, amount decimal.Decimal) (before, after decimal.Decimal) {
	before = a.Balance(w)
	after = before.Add(amount)
	a.SetBalance(w, after)
	return before, after
}

// Debit removes amount from the wallet. It refuses to take the wallet below zero.
func (a *Account) Debit(w Wallet, amount decimal.Decimal) (before, after decimal.Decimal, err error) {
	before = a.Balance(w)
	if before.LessThan(amount) {
		return before, before, fmt.Errorf("%s of account %d is %s, need %s", w, a.ID, before.StringFixed(2), amount.StringFixed(2))
	}
	after = before.Sub(amount)
	a.SetBalance(w, after)
	return before, after, nil
}
