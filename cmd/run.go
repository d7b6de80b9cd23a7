package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"tierledger/api"
	"tierledger/config"
	"tierledger/database"
	"tierledger/events"
	"tierledger/infrastructure"
	"tierledger/infrastructure/observability"
	"tierledger/provider"
	"tierledger/repository"
	"tierledger/service"
)

// Run initializes and starts the ledger service
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting tierledger...")

	// Metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	// Database
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Event bus and post-commit subscribers
	eventBus := events.NewBus()
	eventBus.SubscribeAll(metrics.Handle)

	natsClient, err := connectNATS(ctx, cfg)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer natsClient.Close()
		forwarder := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper(), metrics)
		eventBus.SubscribeAll(forwarder.Handle)
	}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		rdb, err = infrastructure.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
	} else {
		log.Warn("REDIS_URL not set, using in-process settings cache and no message broadcast")
	}

	var broadcastBackend infrastructure.ChannelPublisher
	var settingsCache service.SettingsCache
	if rdb != nil {
		broadcastBackend = rdb
		settingsCache = infrastructure.NewRedisSettingsCache(rdb, cfg.SettingsCacheTTL())
	} else {
		settingsCache = infrastructure.NewMemorySettingsCache(cfg.SettingsCacheTTL())
	}
	broadcaster := infrastructure.NewMessageBroadcaster(broadcastBackend, metrics)
	eventBus.Subscribe(events.EventTypeMessageCreated, broadcaster.Handle)

	if cfg.DiscordEnabled() {
		session, err := infrastructure.NewDiscordSession()
		if err != nil {
			return err
		}
		notifier := infrastructure.NewDiscordNotifier(session, cfg.DiscordWebhookID, cfg.DiscordWebhookToken, cfg.DiscordAlertThreshold)
		eventBus.Subscribe(events.EventTypeSettlementCompleted, notifier.Handle)
		eventBus.Subscribe(events.EventTypeRequestProcessed, notifier.Handle)
		log.Info("Discord webhook alerts enabled")
	}

	// Services
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	gameClient := provider.NewClient(cfg.ProviderTimeout())
	settingsService := service.NewSettingsService(uowFactory, repository.NewSettingsRepository(db), settingsCache)

	server := api.NewServer(api.Services{
		Approvals:   service.NewApprovalService(uowFactory),
		Settlements: service.NewSettlementService(uowFactory),
		Transfers:   service.NewTransferService(uowFactory),
		Callbacks:   service.NewCallbackService(uowFactory, settingsService),
		Settings:    settingsService,
		Accounts:    service.NewAccountService(uowFactory, service.NewBonusGranter(uowFactory)),
		Launches:    service.NewLaunchService(uowFactory, settingsService, gameClient),
		Catalog:     service.NewCatalogService(uowFactory, settingsService, gameClient),
		Messages:    service.NewMessageService(uowFactory),
	}, api.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry()))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down tierledger...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

func connectNATS(ctx context.Context, cfg *config.Config) (*infrastructure.NATSClient, error) {
	if cfg.NATSURL == "" {
		log.Warn("NATS_URL not set, ledger events will not be forwarded")
		return nil, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSURL)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	if err := infrastructure.EnsureLedgerEventStream(client, infrastructure.NewEventSubjectMapper()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ensure ledger event stream: %w", err)
	}
	return client, nil
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") || cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
