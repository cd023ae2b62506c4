package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
)

var createCmd = &cobra.Command{
	Use:   "create <rule>",
	Short: "Create a new rule",
	Long: `Parse a rule and store it in the service.

Examples:
  rulectl create "age > 30 AND department = 'Sales'"
  rulectl create "salary > 50000 OR experience > 5" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		view, err := c.CreateRule(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}

		if quiet {
			return nil
		}
		if f == cli.FormatTable {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully created rule %d\n", view.ID)
			return nil
		}
		return cli.PrintRule(cmd.OutOrStdout(), view, f)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
