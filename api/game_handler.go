package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"tierledger/service"
)

var errInvalidCallbackParams = errors.New("invalid callback parameters")

func (s *Server) launchGame(c *fiber.Ctx) error {
	url, err := s.services.Launches.Launch(c.UserContext(), currentAccountID(c), c.Query("game_uid"), clientInfo(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": url})
}

func (s *Server) syncCatalog(c *fiber.Ctx) error {
	result, err := s.services.Catalog.Sync(c.UserContext(), currentAccountID(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// gameCallback receives round results from the provider as form or JSON
func (s *Server) gameCallback(c *fiber.Ctx) error {
	fields, err := callbackFields(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(callbackError{Error: "Invalid parameters"})
	}

	in, err := roundResultFrom(fields)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(callbackError{Error: "Invalid parameters"})
	}

	outcome, err := s.services.Callbacks.SettleRound(c.UserContext(), in)
	if err != nil {
		return writeCallbackError(c, err)
	}

	log.WithFields(log.Fields{
		"round":   in.Round,
		"gameUID": in.GameUID,
		"replay":  outcome.Replay,
	}).Debug("Game callback accepted")
	return c.JSON(fiber.Map{"status": "ok"})
}

// callbackFields flattens the callback body into a field map
func callbackFields(c *fiber.Ctx) (map[string]any, error) {
	fields := make(map[string]any)
	contentType := strings.ToLower(string(c.Request().Header.ContentType()))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		dec := json.NewDecoder(bytes.NewReader(c.Body()))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return nil, err
		}

	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		for key, values := range form.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}

	default:
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			fields[string(key)] = string(value)
		})
	}
	return fields, nil
}

func roundResultFrom(fields map[string]any) (service.RoundResult, error) {
	amount := func(key string) (decimal.Decimal, error) {
		raw := fieldString(fields, key)
		if raw == "" {
			return decimal.Zero, nil
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			return decimal.Zero, errInvalidCallbackParams
		}
		return v, nil
	}

	var in service.RoundResult
	var err error
	if in.BetAmount, err = amount("bet_amount"); err != nil {
		return in, err
	}
	if in.WinAmount, err = amount("win_amount"); err != nil {
		return in, err
	}
	if in.WalletBefore, err = amount("wallet_before"); err != nil {
		return in, err
	}
	if in.WalletAfter, err = amount("wallet_after"); err != nil {
		return in, err
	}
	if raw := fieldString(fields, "change"); raw != "" {
		if _, err := decimal.NewFromString(raw); err != nil {
			return in, errInvalidCallbackParams
		}
	}

	in.PlayerRef = fieldString(fields, "mobile")
	if in.PlayerRef == "" {
		in.PlayerRef = fieldString(fields, "user_id")
	}
	in.GameUID = fieldString(fields, "game_uid")
	in.Round = fieldString(fields, "game_round")
	in.Token = fieldString(fields, "token")
	in.Raw = fields
	return in, nil
}

func fieldString(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
