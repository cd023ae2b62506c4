package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
)

var (
	evalData     string
	evalDataFile string
	evalExplain  bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <id> [id...]",
	Short: "Evaluate rules against data",
	Long: `Evaluate one or more rules against a JSON object of attributes.
With several ids each rule is evaluated independently.

Examples:
  rulectl evaluate 1 --data '{"age": 35, "department": "Sales"}'
  rulectl evaluate 1 --data-file employee.yaml --explain
  rulectl evaluate 1 2 3 --data '{"age": 35}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		data, err := loadData(evalData, evalDataFile)
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
		ctx := context.Background()
		out := cmd.OutOrStdout()

		if len(ids) > 1 {
			if evalExplain {
				return fmt.Errorf("--explain takes a single rule id")
			}
			results, err := c.EvaluateMany(ctx, ids, data)
			if err != nil {
				return fmt.Errorf("failed to evaluate rules: %w", err)
			}
			if quiet {
				return nil
			}
			return cli.PrintBatch(out, results, f)
		}

		if evalExplain {
			trace, err := c.Explain(ctx, ids[0], data)
			if err != nil {
				return fmt.Errorf("failed to evaluate rule: %w", err)
			}
			if quiet {
				return nil
			}
			return cli.PrintTrace(out, trace, f)
		}

		result, err := c.Evaluate(ctx, ids[0], data)
		if err != nil {
			return fmt.Errorf("failed to evaluate rule: %w", err)
		}
		if quiet {
			return nil
		}
		if f == cli.FormatTable {
			fmt.Fprintln(out, result)
			return nil
		}
		return cli.PrintValue(out, map[string]bool{"result": result}, f)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalData, "data", "", "Attributes as a JSON object")
	evaluateCmd.Flags().StringVar(&evalDataFile, "data-file", "", "Read attributes from a JSON or YAML file")
	evaluateCmd.Flags().BoolVar(&evalExplain, "explain", false, "Show each comparison evaluated")
}
