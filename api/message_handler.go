package api

import (
	"github.com/gofiber/fiber/v2"
)

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	msg, err := s.services.Messages.Send(c.UserContext(), currentAccountID(c), req.ReceiverID, req.Message, clientInfo(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	messages, err := s.services.Messages.List(c.UserContext(), currentAccountID(c), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(messages)
}
