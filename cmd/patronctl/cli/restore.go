package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/pledgekit/patronage/common/convert"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the live slot from the backup snapshot",
	Long: `Restore copies the backup slot back into the live slot. This is the
rollback path after a conversion went wrong. The current live document is
overwritten, so confirmation is required unless --yes is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		yes, _ := cmd.Flags().GetBool("yes")

		components, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Shutdown(ctx)

		if !yes {
			fmt.Fprint(cmd.OutOrStdout(), "Overwrite the live slot with the backup snapshot? (yes/no): ")
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read confirmation: %w", err)
			}
			answer := strings.ToLower(strings.TrimSpace(line))
			if answer != "yes" && answer != "y" {
				fmt.Fprintln(cmd.OutOrStdout(), "restore cancelled")
				return nil
			}
		}

		// The engine owns the restore path so its parse-before-clobber check
		// applies here too. No lookup or confirmation hook is needed.
		engine := convert.NewEngine(components.Store, nil, 0, nil, components.Logger.WithComponent("convert"))
		if err := engine.Restore(ctx); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "live slot restored from backup")
		return nil
	},
}

func init() {
	restoreCmd.Flags().Bool("yes", false, "restore without prompting")
}
