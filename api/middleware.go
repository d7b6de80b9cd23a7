package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"tierledger/models"
)

const localAccountID = "accountID"

// requireAuth verifies the Bearer token and stores the account id in locals
func requireAuth(tokens *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return writeDetail(c, fiber.StatusUnauthorized, "Authentication credentials were not provided.")
		}

		accountID, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			return writeDetail(c, fiber.StatusUnauthorized, "Invalid or expired token.")
		}

		c.Locals(localAccountID, accountID)
		return c.Next()
	}
}

// currentAccountID returns the authenticated account id
func currentAccountID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localAccountID).(int64)
	return id
}

// clientInfo captures the request origin for activity logs
func clientInfo(c *fiber.Ctx) models.ClientInfo {
	return models.ClientInfo{
		IP:     c.IP(),
		Device: c.Get(fiber.HeaderUserAgent),
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		fields := log.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   status,
			"duration": time.Since(start).String(),
		}
		if id := currentAccountID(c); id != 0 {
			fields["accountID"] = id
		}
		log.WithFields(fields).Debug("HTTP request")
		return err
	}
}
