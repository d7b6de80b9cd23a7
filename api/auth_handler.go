package api

import (
	"github.com/gofiber/fiber/v2"
	"tierledger/service"
)

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	Account   accountView `json:"account"`
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	account, err := s.services.Accounts.Authenticate(c.UserContext(), req.Username, req.Password, clientInfo(c))
	if err != nil {
		return err
	}

	token, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		return err
	}
	return c.JSON(loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		Account:   newAccountView(account),
	})
}

type signupResponse struct {
	Token    string      `json:"token"`
	Account  accountView `json:"account"`
	Welcome  grantView   `json:"welcome_bonus"`
	Referral *grantView  `json:"referral_bonus,omitempty"`
}

func (s *Server) signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := s.services.Accounts.Signup(c.UserContext(), service.SignupInput{
		Username:     req.Username,
		Name:         req.Name,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
		Client:       clientInfo(c),
	})
	if err != nil {
		return err
	}

	token, _, err := s.tokens.Issue(result.Account)
	if err != nil {
		return err
	}

	resp := signupResponse{
		Token:   token,
		Account: newAccountView(result.Account),
		Welcome: newGrantView(result.Welcome),
	}
	if result.Referral != nil {
		referral := newGrantView(*result.Referral)
		resp.Referral = &referral
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}
