package api

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"tierledger/models"
	"tierledger/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// parseBody decodes and validates a JSON body. An empty body validates the zero value.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return validate.Struct(out)
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	return validate.Struct(out)
}

type credentialRequest struct {
	PIN      string `json:"pin"`
	Password string `json:"password"`
}

func (r credentialRequest) credential() service.Credential {
	return service.Credential{PIN: r.PIN, Password: r.Password}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Username     string `json:"username" validate:"required,max=150"`
	Name         string `json:"name" validate:"max=255"`
	Password     string `json:"password" validate:"required,min=4"`
	ReferralCode string `json:"referral_code"`
}

type createAccountRequest struct {
	Username             string           `json:"username" validate:"required,max=150"`
	Name                 string           `json:"name" validate:"max=255"`
	Password             string           `json:"password" validate:"required,min=4"`
	PIN                  string           `json:"pin"`
	Role                 models.Role      `json:"role" validate:"required,oneof=super master player"`
	ExposureLimit        *decimal.Decimal `json:"exposure_limit"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
}

type createRequestRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentModeID *int64          `json:"payment_mode_id"`
	Remarks       string          `json:"remarks" validate:"max=500"`
}

type rejectRequest struct {
	credentialRequest
	Reason string `json:"reason" validate:"max=500"`
}

type directMoveRequest struct {
	credentialRequest
	Amount decimal.Decimal `json:"amount"`
}

type resetCredentialsRequest struct {
	credentialRequest
	NewPassword string `json:"new_password"`
	NewPIN      string `json:"new_pin"`
}

type transferRequest struct {
	Recipient string          `json:"recipient" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Password  string          `json:"password"`
}

type messageRequest struct {
	ReceiverID int64  `json:"receiver_id" validate:"required"`
	Message    string `json:"message"`
}

type accountView struct {
	ID                   int64           `json:"id"`
	Username             string          `json:"username"`
	Name                 string          `json:"name"`
	Role                 models.Role     `json:"role"`
	ParentID             *int64          `json:"parent_id"`
	ReferredByID         *int64          `json:"referred_by_id,omitempty"`
	MainBalance          decimal.Decimal `json:"main_balance"`
	BonusBalance         decimal.Decimal `json:"bonus_balance"`
	PLBalance            decimal.Decimal `json:"pl_balance"`
	ExposureBalance      decimal.Decimal `json:"exposure_balance"`
	ExposureLimit        decimal.Decimal `json:"exposure_limit"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	IsActive             bool            `json:"is_active"`
	CreatedAt            time.Time       `json:"created_at"`
}

func newAccountView(a *models.Account) accountView {
	return accountView{
		ID:                   a.ID,
		Username:             a.Username,
		Name:                 a.Name,
		Role:                 a.Role,
		ParentID:             a.ParentID,
		ReferredByID:         a.ReferredByID,
		MainBalance:          a.MainBalance,
		BonusBalance:         a.BonusBalance,
		PLBalance:            a.PLBalance,
		ExposureBalance:      a.ExposureBalance,
		ExposureLimit:        a.ExposureLimit,
		CommissionPercentage: a.CommissionPercentage,
		IsActive:             a.IsActive,
		CreatedAt:            a.CreatedAt,
	}
}

func newAccountViews(accounts []*models.Account) []accountView {
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newAccountView(a))
	}
	return views
}

type requestView struct {
	ID            int64                `json:"id"`
	Kind          models.RequestKind   `json:"kind"`
	AccountID     int64                `json:"account_id"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentModeID *int64               `json:"payment_mode_id,omitempty"`
	Status        models.RequestStatus `json:"status"`
	RejectReason  string               `json:"reject_reason,omitempty"`
	Remarks       string               `json:"remarks,omitempty"`
	ProcessedBy   *int64               `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time           `json:"processed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

func newRequestView(r *models.Request) requestView {
	return requestView{
		ID:            r.ID,
		Kind:          r.Kind,
		AccountID:     r.AccountID,
		Amount:        r.Amount,
		PaymentModeID: r.PaymentModeID,
		Status:        r.Status,
		RejectReason:  r.RejectReason,
		Remarks:       r.Remarks,
		ProcessedBy:   r.ProcessedBy,
		ProcessedAt:   r.ProcessedAt,
		CreatedAt:     r.CreatedAt,
	}
}

type transactionView struct {
	ID            int64                    `json:"id"`
	RefID         uuid.UUID                `json:"ref_id"`
	AccountID     int64                    `json:"account_id"`
	Action        models.ActionType        `json:"action_type"`
	Wallet        models.Wallet            `json:"wallet"`
	Type          models.TransactionType   `json:"transaction_type"`
	Amount        decimal.Decimal          `json:"amount"`
	Status        models.TransactionStatus `json:"status"`
	FromAccountID *int64                   `json:"from_account_id,omitempty"`
	ToAccountID   *int64                   `json:"to_account_id,omitempty"`
	BalanceBefore decimal.NullDecimal      `json:"balance_before"`
	BalanceAfter  decimal.NullDecimal      `json:"balance_after"`
	Remarks       string                   `json:"remarks"`
	CreatedAt     time.Time                `json:"created_at"`
}

func newTransactionViews(txs []*models.Transaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, transactionView{
			ID:            t.ID,
			RefID:         t.RefID,
			AccountID:     t.AccountID,
			Action:        t.ActionType,
			Wallet:        t.Wallet,
			Type:          t.Type,
			Amount:        t.Amount,
			Status:        t.Status,
			FromAccountID: t.FromAccountID,
			ToAccountID:   t.ToAccountID,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Remarks:       t.Remarks,
			CreatedAt:     t.CreatedAt,
		})
	}
	return views
}

type gameLogView struct {
	ID            int64              `json:"id"`
	GameID        int64              `json:"game_id"`
	Type          models.GameLogType `json:"type"`
	Round         string             `json:"round"`
	BetAmount     decimal.Decimal    `json:"bet_amount"`
	WinAmount     decimal.Decimal    `json:"win_amount"`
	LoseAmount    decimal.Decimal    `json:"lose_amount"`
	BeforeBalance decimal.Decimal    `json:"before_balance"`
	AfterBalance  decimal.Decimal    `json:"after_balance"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func newGameLogViews(logs []*models.GameLog) []gameLogView {
	views := make([]gameLogView, 0, len(logs))
	for _, g := range logs {
		views = append(views, gameLogView{
			ID:            g.ID,
			GameID:        g.GameID,
			Type:          g.Type,
			Round:         g.Round,
			BetAmount:     g.BetAmount,
			WinAmount:     g.WinAmount,
			LoseAmount:    g.LoseAmount,
			BeforeBalance: g.BeforeBalance,
			AfterBalance:  g.AfterBalance,
			UpdatedAt:     g.UpdatedAt,
		})
	}
	return views
}

type settingsView struct {
	GGRCoin            decimal.Decimal `json:"ggr_coin"`
	GameAPIURL         string          `json:"game_api_url"`
	GameAPILaunchURL   string          `json:"game_api_launch_url"`
	GameAPICallbackURL string          `json:"game_api_callback_url"`
	GameAPIDomainURL   string          `json:"game_api_domain_url"`
	GameAPIConfigured  bool            `json:"game_api_configured"`
	MinWithdraw        decimal.Decimal `json:"min_withdraw"`
	MaxWithdraw        decimal.Decimal `json:"max_withdraw"`
	MinDeposit         decimal.Decimal `json:"min_deposit"`
	MaxDeposit         decimal.Decimal `json:"max_deposit"`
	ExposureLimit      decimal.Decimal `json:"exposure_limit"`
	DefaultMasterID    *int64          `json:"default_master_id"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// newSettingsView leaves out the provider secret and token
func newSettingsView(s *models.SuperSetting) settingsView {
	return settingsView{
		GGRCoin:            s.GGRCoin,
		GameAPIURL:         s.GameAPIURL,
		GameAPILaunchURL:   s.GameAPILaunchURL,
		GameAPICallbackURL: s.GameAPICallbackURL,
		GameAPIDomainURL:   s.GameAPIDomainURL,
		GameAPIConfigured:  s.GameAPIConfigured(),
		MinWithdraw:        s.MinWithdraw,
		MaxWithdraw:        s.MaxWithdraw,
		MinDeposit:         s.MinDeposit,
		MaxDeposit:         s.MaxDeposit,
		ExposureLimit:      s.ExposureLimit,
		DefaultMasterID:    s.DefaultMasterID,
		UpdatedAt:          s.UpdatedAt,
	}
}

type grantView struct {
	Applied   bool            `json:"applied"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
	AccountID int64           `json:"account_id"`
}

func newGrantView(g models.GrantResult) grantView {
	return grantView{
		Applied:   g.Applied,
		Amount:    g.Amount,
		Reason:    g.Reason,
		AccountID: g.AccountID,
	}
}
