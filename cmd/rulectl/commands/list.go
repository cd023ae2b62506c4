package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
)

var (
	listField string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules",
	Long: `List all rules ordered by id.

Examples:
  rulectl list
  rulectl list --format json
  rulectl list --field department`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		views, err := c.ListRules(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}

		if listField != "" {
			views = filterByField(views, listField)
		}

		if quiet {
			return nil
		}
		if len(views) == 0 && f == cli.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No rules found")
			return nil
		}
		return cli.PrintRules(cmd.OutOrStdout(), views, f)
	},
}

// filterByField keeps the rules that compare the named field.
func filterByField(views []service.RuleView, field string) []service.RuleView {
	out := make([]service.RuleView, 0, len(views))
	for _, v := range views {
		node, err := rules.Deserialize(v.AST)
		if err != nil {
			continue
		}
		for _, f := range rules.Fields(node) {
			if strings.EqualFold(f, field) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listField, "field", "", "Show only rules that reference this field")
}
