package api

import (
	"github.com/gofiber/fiber/v2"
	"tierledger/models"
	"tierledger/service"
)

func (s *Server) listAccounts(c *fiber.Ctx) error {
	var role *models.Role
	if raw := c.Query("role"); raw != "" {
		r := models.Role(raw)
		role = &r
	}

	accounts, err := s.services.Accounts.List(c.UserContext(), currentAccountID(c), role)
	if err != nil {
		return err
	}
	return c.JSON(newAccountViews(accounts))
}

func (s *Server) getAccount(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	account, err := s.services.Accounts.Get(c.UserContext(), currentAccountID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(newAccountView(account))
}

func (s *Server) createAccount(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	account, err := s.services.Accounts.CreateAccount(c.UserContext(), currentAccountID(c), service.NewAccount{
		Username:             req.Username,
		Name:                 req.Name,
		Password:             req.Password,
		PIN:                  req.PIN,
		Role:                 req.Role,
		ExposureLimit:        req.ExposureLimit,
		CommissionPercentage: req.CommissionPercentage,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newAccountView(account))
}

func (s *Server) directDeposit(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req directMoveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	deposit, err := s.services.Approvals.DirectDeposit(c.UserContext(), currentAccountID(c), id, req.Amount, req.credential())
	if err != nil {
		return err
	}
	return c.JSON(newRequestView(deposit))
}

func (s *Server) directWithdraw(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req directMoveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	withdraw, err := s.services.Approvals.DirectWithdraw(c.UserContext(), currentAccountID(c), id, req.Amount, req.credential())
	if err != nil {
		return err
	}
	return c.JSON(newRequestView(withdraw))
}

func (s *Server) resetCredentials(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req resetCredentialsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	err = s.services.Accounts.ResetCredentials(c.UserContext(), currentAccountID(c), id, req.NewPassword, req.NewPIN, req.credential(), clientInfo(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
