package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tierledger/models"
	"tierledger/service"
)

type testServer struct {
	server      *Server
	tokens      *TokenIssuer
	approvals   *mockApprovals
	settlements *mockSettlements
	transfers   *mockTransfers
	callbacks   *mockCallbacks
	settings    *mockSettings
	accounts    *mockAccounts
	launches    *mockLaunches
	catalog     *mockCatalog
	messages    *mockMessages
}

func newTestServer() *testServer {
	ts := &testServer{
		tokens:      NewTokenIssuer("test-secret", time.Hour),
		approvals:   &mockApprovals{},
		settlements: &mockSettlements{},
		transfers:   &mockTransfers{},
		callbacks:   &mockCallbacks{},
		settings:    &mockSettings{},
		accounts:    &mockAccounts{},
		launches:    &mockLaunches{},
		catalog:     &mockCatalog{},
		messages:    &mockMessages{},
	}
	ts.server = NewServer(Services{
		Approvals:   ts.approvals,
		Settlements: ts.settlements,
		Transfers:   ts.transfers,
		Callbacks:   ts.callbacks,
		Settings:    ts.settings,
		Accounts:    ts.accounts,
		Launches:    ts.launches,
		Catalog:     ts.catalog,
		Messages:    ts.messages,
	}, ts.tokens)
	return ts
}

func (ts *testServer) tokenFor(t *testing.T, id int64, role models.Role) string {
	t.Helper()
	token, _, err := ts.tokens.Issue(&models.Account{ID: id, Role: role})
	require.NoError(t, err)
	return token
}

// do sends a JSON request and decodes the JSON response into a map
func (ts *testServer) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.send(t, req)
}

func (ts *testServer) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := ts.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func decimalEq(expected string) any {
	want := decimal.RequireFromString(expected)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func TestHealthz(t *testing.T) {
	ts := newTestServer()
	status, body := ts.do(t, http.MethodGet, "/api/healthz", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer()

	status, body := ts.do(t, http.MethodGet, "/api/accounts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Authentication credentials were not provided.", body["detail"])

	status, _ = ts.do(t, http.MethodGet, "/api/accounts", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)

	other := NewTokenIssuer("other-secret", time.Hour)
	forged, _, err := other.Issue(&models.Account{ID: 1, Role: models.RolePowerhouse})
	require.NoError(t, err)
	status, _ = ts.do(t, http.MethodGet, "/api/accounts", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, status)

	expired := NewTokenIssuer("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Issue(&models.Account{ID: 1, Role: models.RolePowerhouse})
	require.NoError(t, err)
	status, _ = ts.do(t, http.MethodGet, "/api/accounts", nil, stale)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogin(t *testing.T) {
	ts := newTestServer()
	account := &models.Account{ID: 4, Username: "player", Role: models.RolePlayer, MainBalance: decimal.NewFromInt(50), IsActive: true}
	ts.accounts.On("Authenticate", mock.Anything, "player", "hunter22", mock.Anything).Return(account, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "player", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, status)

	id, err := ts.tokens.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	acct := body["account"].(map[string]any)
	assert.Equal(t, "player", acct["username"])
	assert.Equal(t, "50", acct["main_balance"])
	assert.NotContains(t, acct, "password_hash")
	assert.NotContains(t, acct, "pin")
}

func TestLogin_Failures(t *testing.T) {
	ts := newTestServer()

	status, body := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "player"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "password is required.", body["detail"])

	ts.accounts.On("Authenticate", mock.Anything, "player", "wrong", mock.Anything).Return(nil, service.ErrInvalidCredentials).Once()
	status, body = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "player", "password": "wrong"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Invalid username or password.", body["detail"])
}

func TestSignup(t *testing.T) {
	ts := newTestServer()
	result := &service.SignupResult{
		Account: &models.Account{ID: 9, Username: "newbie", Role: models.RolePlayer},
		Welcome: models.GrantResult{Applied: true, Amount: decimal.NewFromInt(15), AccountID: 9},
	}
	ts.accounts.On("Signup", mock.Anything, mock.MatchedBy(func(in service.SignupInput) bool {
		return in.Username == "newbie" && in.Password == "secret1" && in.ReferralCode == "3"
	})).Return(result, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username":      "newbie",
		"password":      "secret1",
		"referral_code": "3",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["token"])
	welcome := body["welcome_bonus"].(map[string]any)
	assert.Equal(t, true, welcome["applied"])
	assert.Equal(t, "15", welcome["amount"])
	assert.NotContains(t, body, "referral_bonus")
}

func TestApproveRequest(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 3, models.RoleMaster)

	now := time.Now()
	actor := int64(3)
	approved := &models.Request{
		ID:          11,
		Kind:        models.RequestKindDeposit,
		AccountID:   4,
		Amount:      decimal.NewFromInt(200),
		Status:      models.RequestStatusApproved,
		ProcessedBy: &actor,
		ProcessedAt: &now,
	}
	ts.approvals.On("Approve", mock.Anything, models.RequestKindDeposit, int64(3), int64(11), service.Credential{PIN: "4321"}).
		Return(approved, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/requests/deposit/11/approve", map[string]string{"pin": "4321"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", body["status"])
	assert.Equal(t, "deposit", body["kind"])
	assert.Equal(t, float64(3), body["processed_by"])
	ts.approvals.AssertExpectations(t)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"precondition", service.ErrInsufficientBalance, http.StatusBadRequest, "Insufficient balance."},
		{"validation", service.ErrCredentialRequired, http.StatusBadRequest, "PIN or password required."},
		{"authorization", service.ErrOutOfScope, http.StatusForbidden, "You do not have access to this account."},
		{"wrong password", service.ErrInvalidPassword, http.StatusForbidden, "Invalid password."},
		{"not found", service.ErrRequestNotFound, http.StatusNotFound, "Request not found."},
		{"not configured", service.ErrGameAPINotConfigured, http.StatusServiceUnavailable, "Game API not configured."},
		{"upstream", fmt.Errorf("%w: dial tcp: timeout", service.ErrProviderUnavailable), http.StatusBadGateway, "Game provider unavailable."},
		{"internal", errors.New("connection reset by peer"), http.StatusInternalServerError, "Internal server error."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			token := ts.tokenFor(t, 3, models.RoleMaster)
			ts.approvals.On("Approve", mock.Anything, models.RequestKindWithdraw, int64(3), int64(5), mock.Anything).
				Return(nil, tt.err).Once()

			status, body := ts.do(t, http.MethodPost, "/api/requests/withdraw/5/approve", map[string]string{"password": "x"}, token)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.detail, body["detail"])
		})
	}
}

func TestRequests_InvalidKind(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 3, models.RoleMaster)

	status, body := ts.do(t, http.MethodPost, "/api/requests/loan/1/approve", map[string]string{"pin": "1"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request type.", body["detail"])
	ts.approvals.AssertNotCalled(t, "Approve")
}

func TestCreateRequest(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 4, models.RolePlayer)

	modeID := int64(7)
	ts.approvals.On("Create", mock.Anything, mock.MatchedBy(func(in service.NewRequest) bool {
		return in.Kind == models.RequestKindWithdraw &&
			in.OwnerID == 4 &&
			in.Amount.Equal(decimal.RequireFromString("120.50")) &&
			in.PaymentModeID != nil && *in.PaymentModeID == modeID
	})).Return(&models.Request{ID: 21, Kind: models.RequestKindWithdraw, AccountID: 4, Status: models.RequestStatusPending}, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/requests/withdraw", map[string]any{
		"amount":          "120.50",
		"payment_mode_id": modeID,
	}, token)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "pending", body["status"])
	ts.approvals.AssertExpectations(t)
}

func TestDirectDeposit(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 2, models.RoleSuper)

	ts.approvals.On("DirectDeposit", mock.Anything, int64(2), int64(3), decimalEq("500"), service.Credential{PIN: "9999"}).
		Return(&models.Request{ID: 30, Kind: models.RequestKindDeposit, AccountID: 3, Status: models.RequestStatusApproved}, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/accounts/3/direct-deposit", map[string]any{"amount": 500, "pin": "9999"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", body["status"])
	ts.approvals.AssertExpectations(t)
}

func TestSettle(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 2, models.RoleSuper)

	ts.settlements.On("Settle", mock.Anything, int64(2), int64(3), service.Credential{PIN: "2468"}).
		Return(&service.SettlementResult{
			SuperID:          2,
			MasterID:         3,
			Amount:           decimal.NewFromInt(750),
			PLCleared:        decimal.NewFromInt(-20),
			SuperBalanceNow:  decimal.NewFromInt(1750),
			MasterBalanceNow: decimal.Zero,
		}, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/settlements/3", map[string]string{"pin": "2468"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "750", body["amount"])
	assert.Equal(t, "-20", body["pl_cleared"])
	assert.Equal(t, "0", body["master_balance"])
}

func TestTransfer(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 4, models.RolePlayer)

	status, body := ts.do(t, http.MethodPost, "/api/transfers", map[string]any{"amount": "10", "password": "hunter22"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "recipient is required.", body["detail"])

	ts.transfers.On("Transfer", mock.Anything, int64(4), "friend", decimalEq("10"), "hunter22", mock.Anything).
		Return(&service.TransferResult{Amount: decimal.NewFromInt(10), RecipientName: "friend", NewBalance: decimal.NewFromInt(40)}, nil).Once()

	status, body = ts.do(t, http.MethodPost, "/api/transfers", map[string]any{"recipient": "friend", "amount": "10", "password": "hunter22"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "friend", body["recipient"])
	assert.Equal(t, "40", body["new_balance"])
}

func TestLaunchGame(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 4, models.RolePlayer)

	ts.launches.On("Launch", mock.Anything, int64(4), "slot-1", mock.Anything).Return("https://play.example/s/1", nil).Once()

	status, body := ts.do(t, http.MethodGet, "/api/games/launch?game_uid=slot-1", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://play.example/s/1", body["url"])
}

func TestGameCallback_Form(t *testing.T) {
	ts := newTestServer()

	ts.callbacks.On("SettleRound", mock.Anything, mock.MatchedBy(func(in service.RoundResult) bool {
		return in.PlayerRef == "player" &&
			in.Round == "R1" &&
			in.GameUID == "slot-1" &&
			in.Token == "provider-token" &&
			in.BetAmount.Equal(decimal.NewFromInt(100)) &&
			in.WinAmount.IsZero() &&
			in.WalletAfter.Equal(decimal.NewFromInt(900)) &&
			in.Raw["game_round"] == "R1"
	})).Return(&service.RoundOutcome{}, nil).Once()

	form := url.Values{}
	form.Set("mobile", "player")
	form.Set("bet_amount", "100")
	form.Set("game_uid", "slot-1")
	form.Set("game_round", "R1")
	form.Set("token", "provider-token")
	form.Set("wallet_before", "1000")
	form.Set("wallet_after", "900")
	req := httptest.NewRequest(http.MethodPost, "/api/callback/game", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body := ts.send(t, req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	ts.callbacks.AssertExpectations(t)
}

func TestGameCallback_JSON(t *testing.T) {
	ts := newTestServer()

	ts.callbacks.On("SettleRound", mock.Anything, mock.MatchedBy(func(in service.RoundResult) bool {
		return in.PlayerRef == "42" &&
			in.BetAmount.Equal(decimal.RequireFromString("12.5")) &&
			in.WinAmount.Equal(decimal.NewFromInt(30))
	})).Return(&service.RoundOutcome{Replay: true}, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/callback/game", map[string]any{
		"user_id":      42,
		"bet_amount":   12.5,
		"win_amount":   "30",
		"game_round":   "R9",
		"wallet_after": 1017.5,
	}, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestGameCallback_Errors(t *testing.T) {
	ts := newTestServer()

	status, body := ts.do(t, http.MethodPost, "/api/callback/game", map[string]any{"bet_amount": "ten", "game_round": "R1"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid parameters", body["error"])

	ts.callbacks.On("SettleRound", mock.Anything, mock.MatchedBy(func(in service.RoundResult) bool { return in.Token == "bad" })).
		Return(nil, service.ErrInvalidToken).Once()
	status, body = ts.do(t, http.MethodPost, "/api/callback/game", map[string]any{"token": "bad", "game_round": "R1"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Invalid token", body["error"])

	ts.callbacks.On("SettleRound", mock.Anything, mock.MatchedBy(func(in service.RoundResult) bool { return in.PlayerRef == "ghost" })).
		Return(nil, service.ErrPlayerNotFound).Once()
	status, body = ts.do(t, http.MethodPost, "/api/callback/game", map[string]any{"mobile": "ghost", "game_round": "R1"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User not found", body["error"])
	assert.NotContains(t, body, "detail")

	for _, field := range []string{"bet_amount", "win_amount", "wallet_before", "wallet_after"} {
		status, body = ts.do(t, http.MethodPost, "/api/callback/game", map[string]any{
			"mobile":     "player",
			"game_round": "R1",
			field:        "-500",
		}, "")
		assert.Equal(t, http.StatusBadRequest, status, field)
		assert.Equal(t, "Invalid parameters", body["error"], field)
	}
	ts.callbacks.AssertNumberOfCalls(t, "SettleRound", 2)
}

func TestSettings(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 1, models.RolePowerhouse)

	current := &models.SuperSetting{
		ID:            1,
		GameAPIURL:    "https://games.example",
		GameAPISecret: "shared-secret",
		GameAPIToken:  "provider-token",
		MinDeposit:    decimal.NewFromInt(10),
		MaxDeposit:    decimal.NewFromInt(5000),
	}
	ts.settings.On("Current", mock.Anything).Return(current, nil)

	status, body := ts.do(t, http.MethodGet, "/api/settings", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["game_api_configured"])
	assert.NotContains(t, body, "game_api_secret")
	assert.NotContains(t, body, "game_api_token")

	ts.settings.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(s *models.SuperSetting) bool {
		return s.MaxDeposit.Equal(decimal.NewFromInt(8000)) &&
			s.MinDeposit.Equal(decimal.NewFromInt(10)) &&
			s.GameAPISecret == "shared-secret"
	}), service.Credential{Password: "root-pass"}).Return(current, nil).Once()

	status, _ = ts.do(t, http.MethodPut, "/api/settings", map[string]any{"max_deposit": "8000", "password": "root-pass"}, token)
	require.Equal(t, http.StatusOK, status)
	ts.settings.AssertExpectations(t)
}

func TestSendMessage(t *testing.T) {
	ts := newTestServer()
	token := ts.tokenFor(t, 4, models.RolePlayer)

	ts.messages.On("Send", mock.Anything, int64(4), int64(3), "need a top up", mock.Anything).
		Return(&models.Message{ID: 1, SenderID: 4, ReceiverID: 3, Body: "need a top up"}, nil).Once()

	status, body := ts.do(t, http.MethodPost, "/api/messages", map[string]any{"receiver_id": 3, "message": "need a top up"}, token)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "need a top up", body["message"])

	ts.messages.On("Send", mock.Anything, int64(4), int64(3), "", mock.Anything).Return(nil, service.ErrEmptyMessage).Once()
	status, body = ts.do(t, http.MethodPost, "/api/messages", map[string]any{"receiver_id": 3, "message": ""}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Message cannot be empty.", body["detail"])
}
