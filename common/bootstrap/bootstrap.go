package bootstrap

import (
	"context"
	"fmt"

	"github.com/pledgekit/patronage/common/config"
	"github.com/pledgekit/patronage/common/logger"
	"github.com/pledgekit/patronage/common/store"
	"github.com/pledgekit/patronage/common/telemetry"
	"github.com/redis/go-redis/v9"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Connect Redis (if not skipped)
	if !options.skipRedis {
		components.Logger.Info("connecting to redis", "addr", components.Config.Redis.Addr)
		components.Redis = redis.NewClient(&redis.Options{
			Addr:     components.Config.Redis.Addr,
			Password: components.Config.Redis.Password,
			DB:       components.Config.Redis.DB,
		})
		if err := components.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 4. Build the patron store (if not skipped)
	if !options.skipStore {
		cells, err := buildCells(components)
		if err != nil {
			components.Shutdown(ctx)
			return nil, err
		}
		components.Store = store.New(
			cells,
			components.Config.Store.LiveCell,
			components.Config.Store.BackupCell,
			components.Logger.WithComponent("store"),
		)
	}

	// 5. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && components.Config.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(
			components.Config.Telemetry.PprofPort,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"redis", components.Redis != nil,
		"store", components.Store != nil,
		"store_backend", components.Config.Store.Backend,
	)

	return components, nil
}

// buildCells constructs the configured cell backend.
func buildCells(components *Components) (store.CellAPI, error) {
	cfg := components.Config.Store
	log := components.Logger.WithComponent("cells")

	switch cfg.Backend {
	case config.StoreBackendSheets:
		return store.NewSheetsCells(store.SheetsConfig{
			BaseURL:       cfg.SheetsBaseURL,
			SpreadsheetID: cfg.SpreadsheetID,
			SheetName:     cfg.SheetName,
			AccessToken:   cfg.AccessToken,
		}, log), nil
	case config.StoreBackendRedis:
		if components.Redis == nil {
			return nil, fmt.Errorf("redis store backend requires a redis connection")
		}
		return store.NewRedisCells(components.Redis, cfg.DocumentID, log), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
