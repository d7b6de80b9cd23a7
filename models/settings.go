package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SuperSetting holds platform-wide settings. There is exactly one row.
type SuperSetting struct {
	ID                 int64           `db:"id" json:"id"`
	GGRCoin            decimal.Decimal `db:"ggr_coin" json:"ggr_coin"`
	GameAPIURL         string          `db:"game_api_url" json:"game_api_url"`
	GameAPISecret      string          `db:"game_api_secret" json:"game_api_secret"`
	GameAPIToken       string          `db:"game_api_token" json:"game_api_token"`
	GameAPICallbackURL string          `db:"game_api_callback_url" json:"game_api_callback_url"`
	GameAPIDomainURL   string          `db:"game_api_domain_url" json:"game_api_domain_url"`
	GameAPILaunchURL   string          `db:"game_api_launch_url" json:"game_api_launch_url"`
	MinWithdraw        decimal.Decimal `db:"min_withdraw" json:"min_withdraw"`
	MaxWithdraw        decimal.Decimal `db:"max_withdraw" json:"max_withdraw"`
	MinDeposit         decimal.Decimal `db:"min_deposit" json:"min_deposit"`
	MaxDeposit         decimal.Decimal `db:"max_deposit" json:"max_deposit"`
	ExposureLimit      decimal.Decimal `db:"exposure_limit" json:"exposure_limit"`
	DefaultMasterID    *int64          `db:"default_master_id" json:"default_master_id"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// GameAPIConfigured reports whether the provider credentials needed to launch are present
func (s *SuperSetting) GameAPIConfigured() bool {
	return s != nil && s.GameAPIURL != "" && s.GameAPISecret != "" && s.GameAPIToken != ""
}

// LaunchBase returns the launch endpoint, preferring the dedicated launch URL
func (s *SuperSetting) LaunchBase() string {
	if s.GameAPILaunchURL != "" {
		return s.GameAPILaunchURL
	}
	return s.GameAPIURL
}
