package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type settlementResponse struct {
	SuperID          int64           `json:"super_id"`
	MasterID         int64           `json:"master_id"`
	Amount           decimal.Decimal `json:"amount"`
	PLCleared        decimal.Decimal `json:"pl_cleared"`
	SuperBalanceNow  decimal.Decimal `json:"super_balance"`
	MasterBalanceNow decimal.Decimal `json:"master_balance"`
}

func (s *Server) settle(c *fiber.Ctx) error {
	masterID, err := pathID(c, "masterId")
	if err != nil {
		return err
	}
	var req credentialRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := s.services.Settlements.Settle(c.UserContext(), currentAccountID(c), masterID, req.credential())
	if err != nil {
		return err
	}
	return c.JSON(settlementResponse{
		SuperID:          result.SuperID,
		MasterID:         result.MasterID,
		Amount:           result.Amount,
		PLCleared:        result.PLCleared,
		SuperBalanceNow:  result.SuperBalanceNow,
		MasterBalanceNow: result.MasterBalanceNow,
	})
}

type transferResponse struct {
	Amount     decimal.Decimal `json:"amount"`
	Recipient  string          `json:"recipient"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

func (s *Server) transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := s.services.Transfers.Transfer(c.UserContext(), currentAccountID(c), req.Recipient, req.Amount, req.Password, clientInfo(c))
	if err != nil {
		return err
	}
	return c.JSON(transferResponse{
		Amount:     result.Amount,
		Recipient:  result.RecipientName,
		NewBalance: result.NewBalance,
	})
}

type historyResponse struct {
	Account      accountView       `json:"account"`
	Transactions []transactionView `json:"transactions"`
	GameLogs     []gameLogView     `json:"game_logs"`
}

// listTransactions returns the ledger of the caller, or of ?account_id= in the caller's scope
func (s *Server) listTransactions(c *fiber.Ctx) error {
	actorID := currentAccountID(c)
	accountID := int64(c.QueryInt("account_id", int(actorID)))

	history, err := s.services.Accounts.History(c.UserContext(), actorID, accountID, c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(historyResponse{
		Account:      newAccountView(history.Account),
		Transactions: newTransactionViews(history.Transactions),
		GameLogs:     newGameLogViews(history.GameLogs),
	})
}
