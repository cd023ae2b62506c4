package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
)

var (
	exportOutput    string
	exportJSONLogic bool
)

// ExportedRule is one entry of an export file.
type ExportedRule struct {
	ID   int64  `yaml:"id,omitempty" json:"id,omitempty"`
	Rule string `yaml:"rule" json:"rule"`
}

// ExportFormat represents the structure for exporting rules
type ExportFormat struct {
	Rules []ExportedRule `yaml:"rules" json:"rules"`
}

var exportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export rules to a file",
	Long: `Export the text of all rules to a YAML or JSON file that import can
read back. With an id and --jsonlogic, print that rule as a JSON Logic
expression instead.

Examples:
  rulectl export --output rules.yaml
  rulectl export --output rules.json --format json
  rulectl export 3 --jsonlogic`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		// Default to YAML for export
		if f == cli.FormatTable {
			f = cli.FormatYAML
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		var output io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			file, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()
			output = file
		}

		if exportJSONLogic {
			if len(args) != 1 {
				return fmt.Errorf("--jsonlogic needs a rule id")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			expr, err := c.JSONLogic(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to export rule: %w", err)
			}
			return cli.PrintValue(output, expr, f)
		}

		views, err := c.ListRules(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		exportData := ExportFormat{Rules: make([]ExportedRule, 0, len(views))}
		for _, v := range views {
			if len(args) == 1 && fmt.Sprint(v.ID) != args[0] {
				continue
			}
			exportData.Rules = append(exportData.Rules, ExportedRule{ID: v.ID, Rule: v.Source})
		}

		if err := cli.PrintValue(output, exportData, f); err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		if exportOutput != "" && exportOutput != "-" && !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Successfully exported %d rule(s) to %s\n", len(exportData.Rules), exportOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportJSONLogic, "jsonlogic", false, "Export one rule as JSON Logic")
}
