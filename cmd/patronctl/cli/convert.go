package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pledgekit/patronage/common/bootstrap"
	"github.com/pledgekit/patronage/common/convert"
	"github.com/pledgekit/patronage/common/identity"
	"github.com/pledgekit/patronage/common/patron"
	"github.com/pledgekit/patronage/common/store"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the store from id-keyed to username-keyed records",
	Long: `Convert reads the legacy document, backs it up to the backup slot,
resolves every member id to a username through the platform's read API, and
rewrites the live slot in the new schema.

Ids that fail to resolve are collected and reported; committing a partial
conversion requires explicit confirmation (or --yes). The backup slot is
written before any mutation and is never touched afterwards.`,
	Example: `  patronctl convert
  patronctl convert --delay 250ms --yes
  patronctl convert --assume-legacy   # wrap a pre-envelope blob first`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		yes, _ := cmd.Flags().GetBool("yes")
		delay, _ := cmd.Flags().GetDuration("delay")
		assumeLegacy, _ := cmd.Flags().GetBool("assume-legacy")

		components, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Shutdown(ctx)

		if err := components.Config.ValidateIdentity(); err != nil {
			return err
		}
		if delay <= 0 {
			delay = components.Config.Identity.RateLimitDelay
		}

		if assumeLegacy {
			if err := wrapLegacyBlob(ctx, components); err != nil {
				return err
			}
		}

		lookup := identity.NewClient(
			components.Config.Identity.BaseURL,
			components.Config.Identity.AccessToken,
			components.Logger.WithComponent("identity"),
		)

		confirm := confirmPrompt(cmd)
		if yes {
			confirm = func(ctx context.Context, failed []string) (bool, error) {
				fmt.Fprintf(cmd.OutOrStdout(), "Proceeding despite %d failed ids (--yes)\n", len(failed))
				return true, nil
			}
		}

		engine := convert.NewEngine(components.Store, lookup, delay, confirm, components.Logger.WithComponent("convert"))

		res, err := engine.Run(ctx)
		if res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: converted %d, failed %d\n",
				res.RunID, len(res.Converted), len(res.Failed))
			for _, id := range res.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s\n", id)
			}
		}
		if err != nil {
			if errors.Is(err, convert.ErrAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), "conversion aborted, live slot untouched")
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "conversion complete and verified; legacy snapshot is in the backup slot")
		return nil
	},
}

func init() {
	convertCmd.Flags().Bool("yes", false, "commit even when some ids failed to resolve, without prompting")
	convertCmd.Flags().Duration("delay", 0, "delay between identity lookups (default from IDENTITY_RATE_LIMIT_DELAY)")
	convertCmd.Flags().Bool("assume-legacy", false, "treat a bare, untagged mapping in the live slot as the legacy schema and wrap it before converting")
}

// confirmPrompt asks the operator on stdin whether to commit a partial
// conversion.
func confirmPrompt(cmd *cobra.Command) convert.ConfirmFunc {
	return func(ctx context.Context, failed []string) (bool, error) {
		fmt.Fprintf(cmd.OutOrStdout(),
			"\nWarning: %d ids could not be converted and will be lost:\n", len(failed))
		for _, id := range failed {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
		}
		fmt.Fprint(cmd.OutOrStdout(), "Proceed anyway? (yes/no): ")

		reader := bufio.NewReader(cmd.InOrStdin())
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, fmt.Errorf("read confirmation: %w", err)
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "yes" || answer == "y", nil
	}
}

// wrapLegacyBlob upgrades a pre-envelope deployment: a live slot holding a
// bare user_id -> {name} object gets wrapped in an explicit id-schema
// document. A slot that already holds a tagged document is left alone.
func wrapLegacyBlob(ctx context.Context, components *bootstrap.Components) error {
	raw, err := components.Store.LoadRaw(ctx)
	if errors.Is(err, store.ErrNoDocument) {
		return fmt.Errorf("live slot is empty, nothing to wrap")
	}
	if err != nil {
		return err
	}

	if _, err := patron.DecodeDocument(raw); err == nil {
		components.Logger.Info("live slot already holds a tagged document, skipping wrap")
		return nil
	}

	var legacy patron.LegacyMapping
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return fmt.Errorf("live slot holds neither a tagged document nor a legacy mapping: %w", err)
	}

	wrapped, err := patron.EncodeLegacyDocument(legacy)
	if err != nil {
		return err
	}
	if err := components.Store.WriteLiveRaw(ctx, wrapped); err != nil {
		return fmt.Errorf("write wrapped legacy document: %w", err)
	}
	components.Logger.Info("wrapped bare legacy blob as id-schema document", "entries", len(legacy))
	return nil
}
