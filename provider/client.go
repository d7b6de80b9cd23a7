package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/models"
	"tierledger/service"
)

// DefaultTimeout bounds every outbound provider call
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 8 << 20

// Client talks to the external game provider API
type Client struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a provider client. Redirects are never followed: the
// launch endpoint answers with the session URL in Location.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		now: time.Now,
	}
}

var _ service.GameAPIClient = (*Client)(nil)

type launchPayload struct {
	UserID       string      `json:"user_id"`
	WalletAmount json.Number `json:"wallet_amount"`
	GameUID      string      `json:"game_uid"`
	Token        string      `json:"token"`
	Timestamp    string      `json:"timestamp"`
	DomainURL    string      `json:"domain_url,omitempty"`
	CallbackURL  string      `json:"callback_url,omitempty"`
}

// floatLiteral renders an amount the way the provider expects a float: the
// shortest decimal form, always with a fractional part (100 becomes 100.0)
func floatLiteral(amount decimal.Decimal) json.Number {
	s := strconv.FormatFloat(amount.InexactFloat64(), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return json.Number(s)
}

// BuildLaunchURL returns the launch URL with plaintext query fields and the
// encrypted payload
func (c *Client) BuildLaunchURL(creds models.GameAPICredentials, params models.LaunchParams) (string, error) {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)

	raw, err := json.Marshal(launchPayload{
		UserID:       params.UserID,
		WalletAmount: floatLiteral(params.WalletAmount),
		GameUID:      params.GameUID,
		Token:        creds.Token,
		Timestamp:    ts,
		DomainURL:    strings.TrimRight(creds.DomainURL, "/"),
		CallbackURL:  strings.TrimRight(creds.CallbackURL, "/"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode launch payload: %w", err)
	}
	payload, err := EncryptPayload(raw, creds.Secret)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(creds.LaunchURL, "/")
	if !strings.Contains(endpoint, "launch") {
		endpoint += "/launch_game"
	}

	query := url.Values{}
	query.Set("user_id", params.UserID)
	query.Set("wallet_amount", params.WalletAmount.Round(0).String())
	query.Set("game_uid", params.GameUID)
	query.Set("token", creds.Token)
	query.Set("timestamp", ts)
	query.Set("payload", payload)

	return endpoint + "?" + query.Encode(), nil
}

// LaunchGame requests a session and returns the URL the provider redirects to
func (c *Client) LaunchGame(ctx context.Context, creds models.GameAPICredentials, params models.LaunchParams) (string, error) {
	launchURL, err := c.BuildLaunchURL(creds, params)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, launchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build launch request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", service.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if resp.StatusCode >= 300 && resp.StatusCode < 400 && location != "" {
		log.WithFields(log.Fields{
			"userID":  params.UserID,
			"gameUID": params.GameUID,
			"status":  resp.StatusCode,
		}).Debug("Provider returned launch redirect")
		return location, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return "", fmt.Errorf("%w: launch returned %d: %s", service.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
}

// ListProviders fetches GET {base}/getProvider. Entries may be bare codes
// or objects.
func (c *Client) ListProviders(ctx context.Context, creds models.GameAPICredentials) ([]models.CatalogProvider, error) {
	var items []json.RawMessage
	if err := c.getJSON(ctx, creds.BaseURL, "/getProvider", nil, &items); err != nil {
		return nil, err
	}

	providers := make([]models.CatalogProvider, 0, len(items))
	for _, item := range items {
		var code string
		if err := json.Unmarshal(item, &code); err == nil {
			if code != "" {
				providers = append(providers, models.CatalogProvider{Code: code, Name: code})
			}
			continue
		}

		var obj map[string]interface{}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		code = firstString(obj, "code", "provider", "id")
		if code == "" {
			continue
		}
		name := firstString(obj, "name", "displayName")
		if name == "" {
			name = code
		}
		providers = append(providers, models.CatalogProvider{Code: code, Name: name})
	}
	return providers, nil
}

// ListProviderGames fetches GET {base}/providerGame?provider=&count=
func (c *Client) ListProviderGames(ctx context.Context, creds models.GameAPICredentials, providerCode string, count int) ([]models.CatalogGame, error) {
	query := url.Values{}
	query.Set("provider", providerCode)
	query.Set("count", strconv.Itoa(count))

	var items []json.RawMessage
	if err := c.getJSON(ctx, creds.BaseURL, "/providerGame", query, &items); err != nil {
		return nil, err
	}

	games := make([]models.CatalogGame, 0, len(items))
	for _, item := range items {
		var obj map[string]interface{}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		games = append(games, models.CatalogGame{
			Name:     firstString(obj, "game_name", "name"),
			Code:     firstString(obj, "game_code", "code"),
			Type:     firstString(obj, "game_type", "type"),
			ImageURL: firstString(obj, "game_image", "image"),
		})
	}
	return games, nil
}

func (c *Client) getJSON(ctx context.Context, base, path string, query url.Values, out interface{}) error {
	if base == "" {
		return service.ErrGameAPINotConfigured
	}
	endpoint := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", service.ErrProviderUnavailable, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", service.ErrProviderUnavailable, path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed %s response: %v", service.ErrProviderUnavailable, path, err)
	}
	return nil
}

// firstString returns the first non-empty value among keys, stringifying numbers
func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
