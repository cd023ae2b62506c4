package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
)

var (
	importDryRun bool
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import rules from a file",
	Long: `Create rules from a YAML or JSON file written by export. Ids in the
file are ignored; each rule receives a new id.

Examples:
  rulectl import rules.yaml
  rulectl import rules.yaml --dry-run
  rulectl import rules.yaml --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		var importData ExportFormat
		if err := yaml.Unmarshal(data, &importData); err != nil {
			return fmt.Errorf("failed to parse file: %w", err)
		}
		if len(importData.Rules) == 0 {
			return fmt.Errorf("no rules found in file")
		}

		if verbose {
			fmt.Fprintf(out, "Found %d rule(s) to import\n", len(importData.Rules))
		}

		// Dry run checks syntax locally and stores nothing
		if importDryRun {
			invalid := 0
			for i, r := range importData.Rules {
				if _, err := rules.ParseString(r.Rule); err != nil {
					invalid++
					fmt.Fprintf(out, "  %d: %s\n     %v\n", i+1, r.Rule, err)
					continue
				}
				fmt.Fprintf(out, "  %d: %s\n", i+1, r.Rule)
			}
			if invalid > 0 {
				return fmt.Errorf("%d rule(s) failed to parse", invalid)
			}
			return nil
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		successCount := 0
		errorCount := 0
		for _, r := range importData.Rules {
			view, err := c.CreateRule(ctx, r.Rule)
			if err != nil {
				errorCount++
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to import rule %q: %v\n", r.Rule, err)
				if !importForce {
					return fmt.Errorf("import failed, use --force to continue on errors")
				}
				continue
			}
			successCount++
			if verbose {
				fmt.Fprintf(out, "Imported rule %d: %s\n", view.ID, r.Rule)
			}
		}

		if !quiet {
			fmt.Fprintf(out, "Import complete: %d succeeded, %d failed\n", successCount, errorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
