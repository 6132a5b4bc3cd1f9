package cli

import (
	"context"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the live document parses as the current schema",
	Long: `Verify re-reads the live slot and checks that it decodes as a
username-keyed document whose records all carry a user id. With --against-backup
it additionally reports whether the live slot still equals the backup snapshot
(useful right after a restore).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		againstBackup, _ := cmd.Flags().GetBool("against-backup")

		components, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Shutdown(ctx)

		raw, doc, err := components.Store.LoadDocument(ctx)
		if err != nil {
			return fmt.Errorf("live slot: %w", err)
		}
		m, err := doc.DecodeMapping()
		if err != nil {
			return fmt.Errorf("live slot does not hold a valid %q document: %w", doc.Schema, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "live slot OK: %d patrons, schema %q\n", len(m), doc.Schema)

		if againstBackup {
			backup, err := components.Store.LoadBackup(ctx)
			if err != nil {
				return err
			}
			if jsonpatch.Equal(raw, backup) {
				fmt.Fprintln(cmd.OutOrStdout(), "live slot matches the backup snapshot")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "live slot differs from the backup snapshot")
			}
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().Bool("against-backup", false, "also compare the live slot against the backup snapshot")
}
