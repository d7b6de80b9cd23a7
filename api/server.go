package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"tierledger/service"
)

// Services are the ledger operations the HTTP surface exposes
type Services struct {
	Approvals   service.ApprovalService
	Settlements service.SettlementService
	Transfers   service.TransferService
	Callbacks   service.CallbackService
	Settings    service.SettingsService
	Accounts    service.AccountService
	Launches    service.LaunchService
	Catalog     service.CatalogService
	Messages    service.MessageService
}

// Server is the Fiber HTTP server of the ledger
type Server struct {
	app      *fiber.App
	services Services
	tokens   *TokenIssuer
}

// NewServer builds the app and registers every route
func NewServer(services Services, tokens *TokenIssuer) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "tierledger",
		ErrorHandler:          errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:      app,
		services: services,
		tokens:   tokens,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(requestLogger())

	root := s.app.Group("/api")
	root.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Provider and public entry points
	root.Post("/callback/game", s.gameCallback)
	root.Post("/auth/login", s.login)
	root.Post("/auth/signup", s.signup)

	authed := root.Group("", requireAuth(s.tokens))

	requests := authed.Group("/requests/:kind")
	requests.Get("", s.listRequests)
	requests.Post("", s.createRequest)
	requests.Post("/:id/approve", s.approveRequest)
	requests.Post("/:id/reject", s.rejectRequest)
	requests.Post("/:id/cancel", s.cancelRequest)

	authed.Get("/accounts", s.listAccounts)
	authed.Post("/accounts", s.createAccount)
	authed.Get("/accounts/:id", s.getAccount)
	authed.Post("/accounts/:id/direct-deposit", s.directDeposit)
	authed.Post("/accounts/:id/direct-withdraw", s.directWithdraw)
	authed.Post("/accounts/:id/reset-credentials", s.resetCredentials)

	authed.Post("/settlements/:masterId", s.settle)
	authed.Post("/transfers", s.transfer)
	authed.Get("/transactions", s.listTransactions)

	authed.Get("/games/launch", s.launchGame)
	authed.Post("/catalog/sync", s.syncCatalog)

	authed.Get("/settings", s.getSettings)
	authed.Put("/settings", s.updateSettings)

	authed.Get("/messages", s.listMessages)
	authed.Post("/messages", s.sendMessage)
}

// App exposes the underlying Fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown
func (s *Server) Listen(addr string) error {
	log.WithField("addr", addr).Info("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
