package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"tierledger/models"
	"tierledger/service"
)

func (s *Server) getSettings(c *fiber.Ctx) error {
	settings, err := s.services.Settings.Current(c.UserContext())
	if err != nil {
		return err
	}
	if settings == nil {
		return service.ErrSettingsNotFound
	}
	return c.JSON(newSettingsView(settings))
}

// updateSettings applies the body over the current row, so omitted fields keep their value
func (s *Server) updateSettings(c *fiber.Ctx) error {
	current, err := s.services.Settings.Current(c.UserContext())
	if err != nil && !errors.Is(err, service.ErrSettingsNotFound) {
		return err
	}

	updated := models.SuperSetting{ID: 1}
	if current != nil {
		updated = *current
	}
	if err := json.Unmarshal(c.Body(), &updated); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	var cred credentialRequest
	if err := json.Unmarshal(c.Body(), &cred); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}

	saved, err := s.services.Settings.Update(c.UserContext(), currentAccountID(c), &updated, cred.credential())
	if err != nil {
		return err
	}
	return c.JSON(newSettingsView(saved))
}
