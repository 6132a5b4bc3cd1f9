package cli

import (
	"context"
	"fmt"

	"github.com/pledgekit/patronage/common/bootstrap"
	"github.com/pledgekit/patronage/common/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "patronctl",
	Short: "Operator tooling for the patron store",
	Long: `patronctl manages the patron row-store document: one-way schema
conversion from id-keyed to username-keyed records, post-conversion
verification, and restore from the backup slot.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(restoreCmd)
}

// setup bootstraps the shared components for a CLI invocation. Redis is only
// connected when the store backend needs it; the CLI has no dedupe or rate
// limiting of its own.
func setup(ctx context.Context) (*bootstrap.Components, error) {
	cfg, err := config.Load("patronctl")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	opts := []bootstrap.Option{
		bootstrap.WithConfig(cfg),
		bootstrap.WithoutTelemetry(),
	}
	if cfg.Store.Backend != config.StoreBackendRedis {
		opts = append(opts, bootstrap.WithoutRedis())
	}

	return bootstrap.Setup(ctx, "patronctl", opts...)
}
