package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a rule",
	Long: `Get details of a specific rule, including its tree.

Examples:
  rulectl get 1
  rulectl get 1 --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
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

		view, err := c.GetRule(context.Background(), id)
		if err != nil {
			return fmt.Errorf("failed to get rule: %w", err)
		}

		if !quiet {
			return cli.PrintRule(cmd.OutOrStdout(), view, f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
