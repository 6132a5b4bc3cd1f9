package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pledgekit/patronage/cmd/webhook/handlers"
	"github.com/pledgekit/patronage/cmd/webhook/routes"
	"github.com/pledgekit/patronage/common/bootstrap"
	"github.com/pledgekit/patronage/common/dedupe"
	commonMiddleware "github.com/pledgekit/patronage/common/middleware"
	"github.com/pledgekit/patronage/common/ratelimit"
	"github.com/pledgekit/patronage/common/reconcile"
	"github.com/pledgekit/patronage/common/signature"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap common components (config, logger, redis, store)
	components, err := bootstrap.Setup(ctx, "webhook")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap webhook service: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	if err := components.Config.ValidateWebhook(); err != nil {
		components.Logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	verifier, err := signature.NewVerifier(
		[]byte(components.Config.Webhook.Secret),
		signature.Hash(components.Config.Webhook.SignatureHash),
	)
	if err != nil {
		components.Logger.Error("invalid signature configuration", "error", err)
		os.Exit(1)
	}

	// Single-writer reconciliation: the store has no transactions, so every
	// apply goes through one queue worker.
	reconciler := reconcile.New(components.Store, components.Logger.WithComponent("reconcile"))
	queue := reconcile.NewQueue(reconciler, components.Config.Webhook.QueueSize, components.Logger.WithComponent("queue"))
	queue.Start(ctx)

	var suppressor *dedupe.Suppressor
	if components.Config.Webhook.DedupeEnabled {
		suppressor = dedupe.New(components.Redis, components.Config.Webhook.DedupeTTL, components.Logger.WithComponent("dedupe"))
	}

	var webhookMW []echo.MiddlewareFunc
	if components.Config.Webhook.RateLimit > 0 {
		limiter := ratelimit.NewLimiter(components.Redis, components.Logger.WithComponent("ratelimit"))
		webhookMW = append(webhookMW, commonMiddleware.WebhookRateLimit(
			limiter,
			components.Config.Webhook.RateLimit,
			components.Config.Webhook.RateWindowSec,
		))
	}

	wh := handlers.NewWebhookHandler(verifier, queue, suppressor, components.Logger.WithComponent("webhook"))
	ph := handlers.NewPatronHandler(components.Store, components.Logger.WithComponent("patron"))

	// Initialize Echo server
	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e)
	routes.Register(e, wh, ph, webhookMW...)

	startServer(e, components, cancel)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "webhook",
		})
	})
}

// startServer starts the Echo server and blocks until shutdown
func startServer(e *echo.Echo, components *bootstrap.Components, cancel context.CancelFunc) {
	port := components.Config.Service.Port
	components.Logger.Info("starting webhook service", "port", port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(fmt.Sprintf(":%d", port))
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		components.Logger.Info("shutdown signal received", "signal", sig.String())
		cancel() // stop the reconcile worker

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			components.Logger.Error("graceful shutdown failed", "error", err)
		}
	}
}
