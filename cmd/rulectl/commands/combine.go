package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
)

var combineCmd = &cobra.Command{
	Use:   "combine <id> [id...]",
	Short: "Combine rules with AND",
	Long: `Join rules with AND, in the order given, and store the result as a
new rule. Ids may be separated by spaces or commas.

Examples:
  rulectl combine 1 2
  rulectl combine 1,2,3 --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		combined, err := c.CombineRules(context.Background(), ids)
		if err != nil {
			return fmt.Errorf("failed to combine rules: %w", err)
		}

		if quiet {
			return nil
		}
		if f == cli.FormatTable {
			fmt.Fprintf(cmd.OutOrStdout(), "Created rule %d: %s\n", combined.ID, combined.Rule)
			return nil
		}
		return cli.PrintValue(cmd.OutOrStdout(), combined, f)
	},
}

func init() {
	rootCmd.AddCommand(combineCmd)
}
