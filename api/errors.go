package api

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"tierledger/service"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

type callbackError struct {
	Error string `json:"error"`
}

func writeDetail(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(detailResponse{Detail: detail})
}

// statusFor maps a ledger error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrPrecondition):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrAuthorization):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrUpstream):
		return fiber.StatusBadGateway
	case errors.Is(err, service.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// errorHandler renders every error returned by a handler as {"detail": ...}
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeDetail(c, fe.Code, fe.Message)
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return writeDetail(c, fiber.StatusBadRequest, formatValidationError(ve))
	}

	var le *service.LedgerError
	if errors.As(err, &le) {
		return writeDetail(c, statusFor(err), le.Message)
	}

	log.WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).WithError(err).Error("Unhandled request error")
	return writeDetail(c, fiber.StatusInternalServerError, "Internal server error.")
}

// writeCallbackError answers the provider with {"error": ...}. Only 400 and
// 403 are sent for ledger failures.
func writeCallbackError(c *fiber.Ctx, err error) error {
	var le *service.LedgerError
	if !errors.As(err, &le) {
		log.WithError(err).Error("Game callback failed")
		return c.Status(fiber.StatusInternalServerError).JSON(callbackError{Error: "Internal error"})
	}

	status := fiber.StatusBadRequest
	if errors.Is(err, service.ErrAuthorization) {
		status = fiber.StatusForbidden
	}
	return c.Status(status).JSON(callbackError{Error: le.Message})
}

func formatValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Invalid request."
	}
	e := errs[0]
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", field)
	case "min":
		return fmt.Sprintf("%s must have minimum length %s.", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must have maximum length %s.", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", field, e.Param())
	}
	return fmt.Sprintf("%s is invalid.", field)
}
