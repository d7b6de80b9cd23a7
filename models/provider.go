package models

import "github.com/shopspring/decimal"

// GameAPICredentials are the provider settings needed for an outbound call
type GameAPICredentials struct {
	BaseURL     string
	LaunchURL   string
	Secret      string
	Token       string
	CallbackURL string
	DomainURL   string
}

// Credentials extracts the provider credentials from the settings row
func (s *SuperSetting) Credentials() GameAPICredentials {
	return GameAPICredentials{
		BaseURL:     s.GameAPIURL,
		LaunchURL:   s.LaunchBase(),
		Secret:      s.GameAPISecret,
		Token:       s.GameAPIToken,
		CallbackURL: s.GameAPICallbackURL,
		DomainURL:   s.GameAPIDomainURL,
	}
}

// LaunchParams identifies the player session being launched
type LaunchParams struct {
	UserID       string
	WalletAmount decimal.Decimal
	GameUID      string
}

// CatalogProvider is a provider entry as listed by the upstream API
type CatalogProvider struct {
	Code string
	Name string
}

// CatalogGame is a game entry as listed by the upstream API
type CatalogGame struct {
	Name     string
	Code     string
	Type     string
	ImageURL string
}
