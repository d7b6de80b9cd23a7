package api

import (
	"github.com/gofiber/fiber/v2"
	"tierledger/models"
	"tierledger/service"
)

func requestKind(c *fiber.Ctx) (models.RequestKind, error) {
	kind := models.RequestKind(c.Params("kind"))
	if !kind.Valid() {
		return "", service.ErrInvalidRequestKind
	}
	return kind, nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, "Not found.")
	}
	return int64(id), nil
}

func (s *Server) listRequests(c *fiber.Ctx) error {
	kind, err := requestKind(c)
	if err != nil {
		return err
	}

	var status *models.RequestStatus
	if raw := c.Query("status"); raw != "" {
		st := models.RequestStatus(raw)
		status = &st
	}

	requests, err := s.services.Approvals.List(c.UserContext(), kind, currentAccountID(c), status, c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	views := make([]requestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, newRequestView(r))
	}
	return c.JSON(views)
}

func (s *Server) createRequest(c *fiber.Ctx) error {
	kind, err := requestKind(c)
	if err != nil {
		return err
	}
	var req createRequestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	created, err := s.services.Approvals.Create(c.UserContext(), service.NewRequest{
		Kind:          kind,
		OwnerID:       currentAccountID(c),
		Amount:        req.Amount,
		PaymentModeID: req.PaymentModeID,
		Remarks:       req.Remarks,
		Client:        clientInfo(c),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newRequestView(created))
}

func (s *Server) approveRequest(c *fiber.Ctx) error {
	kind, err := requestKind(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req credentialRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	approved, err := s.services.Approvals.Approve(c.UserContext(), kind, currentAccountID(c), id, req.credential())
	if err != nil {
		return err
	}
	return c.JSON(newRequestView(approved))
}

func (s *Server) rejectRequest(c *fiber.Ctx) error {
	kind, err := requestKind(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req rejectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	rejected, err := s.services.Approvals.Reject(c.UserContext(), kind, currentAccountID(c), id, req.Reason, req.credential())
	if err != nil {
		return err
	}
	return c.JSON(newRequestView(rejected))
}

func (s *Server) cancelRequest(c *fiber.Ctx) error {
	kind, err := requestKind(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	cancelled, err := s.services.Approvals.Cancel(c.UserContext(), kind, currentAccountID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(newRequestView(cancelled))
}
