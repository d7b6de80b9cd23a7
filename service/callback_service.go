package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/events"
	"tierledger/models"
)

type callbackService struct {
	uowFactory UnitOfWorkFactory
	settings   SettingsReader
}

// NewCallbackService creates the provider round settlement service
func NewCallbackService(uowFactory UnitOfWorkFactory, settings SettingsReader) CallbackService {
	return &callbackService{
		uowFactory: uowFactory,
		settings:   settings,
	}
}

// RoundResult is one round notification as sent by the provider
type RoundResult struct {
	PlayerRef    string
	BetAmount    decimal.Decimal
	WinAmount    decimal.Decimal
	GameUID      string
	Round        string
	Token        string
	WalletBefore decimal.Decimal
	WalletAfter  decimal.Decimal
	Raw          map[string]any
}

// RoundOutcome reports how a round was recorded
type RoundOutcome struct {
	GameLog  *models.GameLog
	Replay   bool
	MasterID *int64
	PLDelta  decimal.Decimal
}

// SettleRound applies a provider round result. The provider's wallet_after
// is authoritative for the player's main balance. A repeated round updates
// the existing log, and the managing Master's P/L and the ledger only move
// by the difference from what was recorded before.
func (s *callbackService) SettleRound(ctx context.Context, in RoundResult) (*RoundOutcome, error) {
	for _, v := range []decimal.Decimal{in.BetAmount, in.WinAmount, in.WalletBefore, in.WalletAfter} {
		if v.IsNegative() {
			return nil, ErrInvalidRoundAmount
		}
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings != nil && settings.GameAPIToken != "" && in.Token != settings.GameAPIToken {
		return nil, ErrInvalidToken
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	player, err := resolvePlayer(ctx, uow.AccountRepository(), in.PlayerRef)
	if err != nil {
		return nil, err
	}

	round := strings.TrimSpace(in.Round)
	if round == "" {
		return nil, ErrRoundRequired
	}
	gameUID := strings.TrimSpace(in.GameUID)
	if gameUID == "" {
		gameUID = models.UnknownGameUID
	}

	game, err := ensureCallbackGame(ctx, uow.GameCatalogRepository(), gameUID)
	if err != nil {
		return nil, err
	}

	// Player and managing parent are locked together so the order matches every other ledger path
	ids := []int64{player.ID}
	if player.ParentID != nil {
		ids = append(ids, *player.ParentID)
	}
	locked, err := uow.AccountRepository().LockAccounts(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	player = locked[player.ID]
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	var master *models.Account
	if player.ParentID != nil {
		if parent := locked[*player.ParentID]; parent != nil && parent.Role == models.RoleMaster {
			master = parent
		}
	}

	logs := uow.GameLogRepository()
	existing, err := logs.GetForUpdate(ctx, player.ID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to get game log: %w", err)
	}

	logType := models.GameLogLose
	loseAmount := in.BetAmount.Sub(in.WinAmount)
	if in.WinAmount.IsPositive() {
		logType = models.GameLogWin
		loseAmount = decimal.Zero
	}

	var (
		gameLog   *models.GameLog
		prevHouse decimal.Decimal
		replay    = existing != nil
	)
	if replay {
		prevHouse = existing.HouseResult()
		existing.BetAmount = in.BetAmount
		existing.WinAmount = in.WinAmount
		existing.LoseAmount = loseAmount
		existing.Type = logType
		existing.AfterBalance = in.WalletAfter
		existing.ProviderRawData = in.Raw
		if err := logs.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update game log: %w", err)
		}
		gameLog = existing
	} else {
		gameLog = &models.GameLog{
			AccountID:       player.ID,
			GameID:          game.ID,
			ProviderID:      game.ProviderID,
			Wallet:          models.WalletMain,
			Type:            logType,
			Round:           round,
			BetAmount:       in.BetAmount,
			WinAmount:       in.WinAmount,
			LoseAmount:      loseAmount,
			BeforeBalance:   in.WalletBefore,
			AfterBalance:    in.WalletAfter,
			ProviderRawData: in.Raw,
		}
		if err := logs.Create(ctx, gameLog); err != nil {
			return nil, fmt.Errorf("failed to create game log: %w", err)
		}
	}

	// Master P/L follows the net house result per round, so a replayed round only
	// moves it by the change since the last report instead of accumulating again.
	plDelta := gameLog.HouseResult().Sub(prevHouse)

	player.MainBalance = in.WalletAfter
	if err := uow.AccountRepository().UpdateWallets(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player balance: %w", err)
	}

	var masterID *int64
	if master != nil {
		masterID = &master.ID
		if !plDelta.IsZero() {
			master.PLBalance = master.PLBalance.Add(plDelta)
			if err := uow.AccountRepository().UpdateWallets(ctx, master); err != nil {
				return nil, fmt.Errorf("failed to update master P/L: %w", err)
			}
		}
	}

	// The player's net is the negation of the house result
	switch {
	case !replay:
		if err := recordRoundLeg(ctx, uow, player.ID, gameLog.HouseResult().Neg(), in, fmt.Sprintf("Game round %s", round)); err != nil {
			return nil, err
		}
	case !plDelta.IsZero():
		if err := recordRoundLeg(ctx, uow, player.ID, plDelta.Neg(), in, fmt.Sprintf("Game round %s adjustment", round)); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.RoundSettledEvent{
		AccountID:   player.ID,
		Round:       round,
		GameUID:     gameUID,
		BetAmount:   in.BetAmount,
		WinAmount:   in.WinAmount,
		WalletAfter: in.WalletAfter,
		MasterID:    masterID,
		PLDelta:     plDelta,
		Replay:      replay,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":   player.ID,
		"round":       round,
		"gameUID":     gameUID,
		"bet":         in.BetAmount.StringFixed(2),
		"win":         in.WinAmount.StringFixed(2),
		"walletAfter": in.WalletAfter.StringFixed(2),
		"replay":      replay,
	}).Info("Game round settled")

	return &RoundOutcome{
		GameLog:  gameLog,
		Replay:   replay,
		MasterID: masterID,
		PLDelta:  plDelta,
	}, nil
}

// recordRoundLeg writes the pl leg for a player's net result on a round
func recordRoundLeg(ctx context.Context, uow UnitOfWork, accountID int64, net decimal.Decimal, in RoundResult, remarks string) error {
	action := models.ActionIn
	if net.IsNegative() {
		action = models.ActionOut
	}
	return RecordBalanceChange(ctx, uow, &models.Transaction{
		RefID:         uuid.New(),
		AccountID:     accountID,
		ActionType:    action,
		Wallet:        models.WalletMain,
		Type:          models.TransactionTypePL,
		Amount:        net.Abs(),
		Status:        models.TransactionStatusSuccess,
		BalanceBefore: decimal.NewNullDecimal(in.WalletBefore),
		BalanceAfter:  decimal.NewNullDecimal(in.WalletAfter),
		Remarks:       remarks,
	})
}

// resolvePlayer matches the provider's player identifier by username,
// then by numeric account ID
func resolvePlayer(ctx context.Context, accounts AccountRepository, ref string) (*models.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrPlayerNotFound
	}

	account, err := accounts.GetByUsername(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	if account != nil {
		return account, nil
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, ErrPlayerNotFound
	}
	account, err = accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	if account == nil {
		return nil, ErrPlayerNotFound
	}
	return account, nil
}

// ensureCallbackGame resolves the game, creating a placeholder entry under
// the unknown provider when the catalog has never seen it
func ensureCallbackGame(ctx context.Context, catalog GameCatalogRepository, gameUID string) (*models.Game, error) {
	game, err := catalog.GetGameByUID(ctx, gameUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game != nil {
		return game, nil
	}

	category, err := catalog.EnsureCategory(ctx, models.DefaultCategoryName)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure category: %w", err)
	}
	provider, err := catalog.EnsureProvider(ctx, models.UnknownProviderCode, models.UnknownProviderName)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure provider: %w", err)
	}

	game, err = catalog.EnsureGame(ctx, &models.Game{
		ProviderID: provider.ID,
		CategoryID: category.ID,
		Name:       truncate(gameUID, models.MaxGameNameLength),
		GameUID:    gameUID,
		IsActive:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder game: %w", err)
	}
	return game, nil
}
