package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Placeholder catalog entries for games first seen through a callback
	UnknownProviderCode = "callback_unknown"
	UnknownProviderName = "Unknown (Callback)"
	DefaultCategoryName = "Other"
	UnknownGameUID      = "unknown"
	MaxGameNameLength   = 255
)

// GameProvider is an upstream game vendor
type GameProvider struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Code        string    `db:"code"`
	APIEndpoint string    `db:"api_endpoint"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// GameCategory groups games for display
type GameCategory struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Game is a catalog entry identified upstream by GameUID
type Game struct {
	ID         int64           `db:"id"`
	ProviderID int64           `db:"provider_id"`
	CategoryID int64           `db:"category_id"`
	Name       string          `db:"name"`
	GameUID    string          `db:"game_uid"`
	ImageURL   string          `db:"image_url"`
	MinBet     decimal.Decimal `db:"min_bet"`
	MaxBet     decimal.Decimal `db:"max_bet"`
	IsActive   bool            `db:"is_active"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

type GameLogType string

const (
	GameLogWin  GameLogType = "win"
	GameLogBet  GameLogType = "bet"
	GameLogLose GameLogType = "lose"
	GameLogDraw GameLogType = "draw"
)

// GameLog is the settled result of one provider round for one account.
// (AccountID, Round) is unique.
type GameLog struct {
	ID              int64           `db:"id"`
	AccountID       int64           `db:"account_id"`
	GameID          int64           `db:"game_id"`
	ProviderID      int64           `db:"provider_id"`
	Wallet          Wallet          `db:"wallet"`
	Type            GameLogType     `db:"type"`
	Round           string          `db:"round"`
	BetAmount       decimal.Decimal `db:"bet_amount"`
	WinAmount       decimal.Decimal `db:"win_amount"`
	LoseAmount      decimal.Decimal `db:"lose_amount"`
	BeforeBalance   decimal.Decimal `db:"before_balance"`
	AfterBalance    decimal.Decimal `db:"after_balance"`
	ProviderRawData map[string]any  `db:"provider_raw_data"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// HouseResult is the account's loss on the round, bet minus win.
// Positive means the house (the managing Master) won.
func (g *GameLog) HouseResult() decimal.Decimal {
	return g.BetAmount.Sub(g.WinAmount)
}
