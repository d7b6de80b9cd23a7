package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME"`

	// HTTP server
	HTTPAddr         string `envconfig:"HTTP_ADDR" default:":8080"`
	JWTSecret        string `envconfig:"JWT_SECRET"`
	JWTExpirySeconds int    `envconfig:"JWT_EXPIRY_SECONDS" default:"172800"` // 2 days

	// Event forwarding and caches, all optional
	NATSURL                 string `envconfig:"NATS_URL"`
	RedisURL                string `envconfig:"REDIS_URL"`
	SettingsCacheTTLSeconds int    `envconfig:"SETTINGS_CACHE_TTL_SECONDS" default:"300"`

	// Discord webhook alerts
	DiscordWebhookID      string          `envconfig:"DISCORD_WEBHOOK_ID"`
	DiscordWebhookToken   string          `envconfig:"DISCORD_WEBHOOK_TOKEN"`
	DiscordAlertThreshold decimal.Decimal `envconfig:"DISCORD_ALERT_THRESHOLD" default:"10000"`

	// Game provider client
	ProviderHTTPTimeoutSeconds int `envconfig:"PROVIDER_HTTP_TIMEOUT_SECONDS" default:"30"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Metrics
	OTelEnabled          bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelServiceName      string `envconfig:"OTEL_SERVICE_NAME" default:"tierledger"`
	OTelExporterType     string `envconfig:"OTEL_EXPORTER_TYPE" default:"console"`
	OTelOTLPEndpoint     string `envconfig:"OTEL_OTLP_ENDPOINT" default:"localhost:4317"`
	OTelExportIntervalMS int    `envconfig:"OTEL_EXPORT_INTERVAL_MS" default:"30000"`

	// Environment
	Environment string `envconfig:"ENVIRONMENT" default:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from an optional .env file and the environment
func load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load(".env")

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ProviderHTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("PROVIDER_HTTP_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ProviderTimeout is the bound applied to every outbound provider call
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderHTTPTimeoutSeconds) * time.Second
}

// JWTExpiry is the lifetime of issued access tokens
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpirySeconds) * time.Second
}

// SettingsCacheTTL is how long a cached settings row is trusted
func (c *Config) SettingsCacheTTL() time.Duration {
	return time.Duration(c.SettingsCacheTTLSeconds) * time.Second
}

// DiscordEnabled reports whether webhook alerts are configured
func (c *Config) DiscordEnabled() bool {
	return c.DiscordWebhookID != "" && c.DiscordWebhookToken != ""
}
