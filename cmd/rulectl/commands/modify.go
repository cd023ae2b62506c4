package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
)

var modifyCmd = &cobra.Command{
	Use:   "modify <id> <rule>",
	Short: "Replace the text of a rule",
	Long: `Replace the text of an existing rule. The rule keeps its id.

Examples:
  rulectl modify 1 "age > 40 AND department = 'Sales'"`,
	Args: cobra.ExactArgs(2),
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

		view, err := c.ModifyRule(context.Background(), id, args[1])
		if err != nil {
			return fmt.Errorf("failed to modify rule: %w", err)
		}

		if quiet {
			return nil
		}
		if f == cli.FormatTable {
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully updated rule %d\n", view.ID)
			return nil
		}
		return cli.PrintRule(cmd.OutOrStdout(), view, f)
	},
}

func init() {
	rootCmd.AddCommand(modifyCmd)
}
