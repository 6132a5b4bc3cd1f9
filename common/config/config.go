package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backend selection.
const (
	StoreBackendSheets = "sheets"
	StoreBackendRedis  = "redis"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Webhook   WebhookConfig
	Store     StoreConfig
	Redis     RedisConfig
	Identity  IdentityConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// WebhookConfig holds the inbound webhook settings
type WebhookConfig struct {
	Secret        string
	SignatureHash string // md5 (platform default), sha1, sha256
	QueueSize     int
	DedupeEnabled bool
	DedupeTTL     time.Duration
	RateLimit     int64 // deliveries per window, 0 disables the limiter
	RateWindowSec int
}

// StoreConfig holds the patron row-store settings
type StoreConfig struct {
	Backend       string // "sheets" or "redis"
	SpreadsheetID string
	SheetName     string
	SheetsBaseURL string
	AccessToken   string
	DocumentID    string // redis backend document id
	LiveCell      string
	BackupCell    string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IdentityConfig holds the platform read-API settings (conversion only)
type IdentityConfig struct {
	BaseURL        string
	AccessToken    string
	RateLimitDelay time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Webhook: WebhookConfig{
			Secret:        getEnv("WEBHOOK_SECRET", ""),
			SignatureHash: getEnv("WEBHOOK_SIGNATURE_HASH", "md5"),
			QueueSize:     getEnvInt("WEBHOOK_QUEUE_SIZE", 256),
			DedupeEnabled: getEnvBool("WEBHOOK_DEDUPE_ENABLED", true),
			DedupeTTL:     getEnvDuration("WEBHOOK_DEDUPE_TTL", 10*time.Minute),
			RateLimit:     int64(getEnvInt("WEBHOOK_RATE_LIMIT", 120)),
			RateWindowSec: getEnvInt("WEBHOOK_RATE_WINDOW_SEC", 60),
		},
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", StoreBackendSheets),
			SpreadsheetID: getEnv("STORE_SPREADSHEET_ID", ""),
			SheetName:     getEnv("STORE_SHEET_NAME", "Sheet1"),
			SheetsBaseURL: getEnv("STORE_SHEETS_BASE_URL", "https://sheets.googleapis.com"),
			AccessToken:   getEnv("STORE_ACCESS_TOKEN", ""),
			DocumentID:    getEnv("STORE_DOCUMENT_ID", "patrons"),
			LiveCell:      getEnv("STORE_LIVE_CELL", "A1"),
			BackupCell:    getEnv("STORE_BACKUP_CELL", "B1"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Identity: IdentityConfig{
			BaseURL:        getEnv("IDENTITY_BASE_URL", "https://www.patreon.com/api/oauth2/v2"),
			AccessToken:    getEnv("IDENTITY_ACCESS_TOKEN", ""),
			RateLimitDelay: getEnvDuration("IDENTITY_RATE_LIMIT_DELAY", 500*time.Millisecond),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Store.Backend {
	case StoreBackendSheets:
		if c.Store.SpreadsheetID == "" {
			return fmt.Errorf("STORE_SPREADSHEET_ID is required for the sheets backend")
		}
	case StoreBackendRedis:
		if c.Store.DocumentID == "" {
			return fmt.Errorf("STORE_DOCUMENT_ID is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if c.Store.LiveCell == c.Store.BackupCell {
		return fmt.Errorf("live and backup cells must differ")
	}

	return nil
}

// ValidateWebhook checks the settings the webhook service cannot run without.
// Kept separate from Validate so the conversion CLI does not need a webhook
// secret in its environment.
func (c *Config) ValidateWebhook() error {
	if c.Webhook.Secret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required: signature verification cannot run without it")
	}
	return nil
}

// ValidateIdentity checks the settings a conversion run cannot start without.
func (c *Config) ValidateIdentity() error {
	if c.Identity.AccessToken == "" {
		return fmt.Errorf("IDENTITY_ACCESS_TOKEN is required for conversion runs")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
