package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/engine"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/logic"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
)

var (
	parseData     string
	parseDataFile string
)

// localCheck is the result of evaluating a parsed rule offline with both
// the rule engine and its JSON Logic export.
type localCheck struct {
	Result    bool           `json:"result" yaml:"result"`
	JSONLogic bool           `json:"jsonlogic" yaml:"jsonlogic"`
	Agree     bool           `json:"agree" yaml:"agree"`
	Export    map[string]any `json:"expression" yaml:"expression"`
}

var parseCmd = &cobra.Command{
	Use:   "parse <rule>",
	Short: "Parse a rule locally and print its tree",
	Long: `Parse a rule without contacting the service. Useful for checking
syntax and precedence before creating a rule.

Examples:
  rulectl parse "a = 1 OR b = 2 AND c = 3"
  rulectl parse "(age > 30) AND (salary > 50000)" --format yaml
  rulectl parse "age > 30" --data '{"age": 40}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}

		node, err := rules.ParseString(args[0])
		if err != nil {
			return err
		}

		if parseData != "" || parseDataFile != "" {
			return checkLocally(cmd, node, f)
		}

		if quiet {
			return nil
		}
		out := cmd.OutOrStdout()
		if f == cli.FormatTable {
			fmt.Fprintf(out, "canonical: %s\n", rules.Format(node))
			fmt.Fprintf(out, "fields:    %v\n", rules.Fields(node))
			fmt.Fprintf(out, "depth:     %d\n", rules.Depth(node))
			if verbose {
				fmt.Fprintf(out, "hash:      %016x\n", rules.Fingerprint(node))
			}
			return cli.PrintValue(out, rules.Serialize(node), cli.FormatJSON)
		}
		return cli.PrintValue(out, rules.Serialize(node), f)
	},
}

// checkLocally evaluates node against the --data record with the rule
// engine and with the JSON Logic export, and fails when they disagree.
func checkLocally(cmd *cobra.Command, node rules.Node, f cli.OutputFormat) error {
	data, err := loadData(parseData, parseDataFile)
	if err != nil {
		return err
	}
	result, err := engine.Evaluate(node, engine.Record(data))
	if err != nil {
		return err
	}
	expr, err := logic.Export(node)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(expr)
	if err != nil {
		return err
	}
	viaLogic, err := logic.Evaluate(string(encoded), data)
	if err != nil {
		return err
	}

	check := localCheck{Result: result, JSONLogic: viaLogic, Agree: result == viaLogic, Export: expr}
	if !quiet {
		out := cmd.OutOrStdout()
		if f == cli.FormatTable {
			fmt.Fprintf(out, "result:    %v\n", check.Result)
			fmt.Fprintf(out, "jsonlogic: %v\n", check.JSONLogic)
		} else if err := cli.PrintValue(out, check, f); err != nil {
			return err
		}
	}
	if !check.Agree {
		return fmt.Errorf("rule engine returned %v but JSON Logic returned %v", result, viaLogic)
	}
	return nil
}

func init() {
	parseCmd.Flags().StringVar(&parseData, "data", "", "Evaluate the rule locally against a JSON object")
	parseCmd.Flags().StringVar(&parseDataFile, "data-file", "", "Evaluate the rule locally against a JSON or YAML file")
	rootCmd.AddCommand(parseCmd)
}
