package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/engine"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

const maxSourceWidth = 60

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// PrintRules outputs rules in the specified format
func PrintRules(w io.Writer, views []service.RuleView, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]service.RuleView{"rules": views})
	case FormatYAML:
		return printYAML(w, views)
	case FormatTable:
		return printRuleTable(w, views)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintRule outputs a single rule in the specified format
func PrintRule(w io.Writer, view *service.RuleView, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, view)
	case FormatYAML:
		return printYAML(w, view)
	case FormatTable:
		return printRuleTable(w, []service.RuleView{*view})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintTrace outputs an evaluation trace. The table form lists each
// comparison with the record value it saw.
func PrintTrace(w io.Writer, res *engine.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, res)
	case FormatYAML:
		return printYAML(w, res)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("#", "Comparison", "Actual", "Result")
		for i, s := range res.Steps {
			if err := table.Append(
				fmt.Sprint(i+1),
				s.Comparison,
				fmt.Sprint(s.Actual),
				fmt.Sprint(s.Result),
			); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "result: %v\n", res.Value)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintBatch outputs the results of a batch evaluation.
func PrintBatch(w io.Writer, results []service.BatchResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]service.BatchResult{"results": results})
	case FormatYAML:
		return printYAML(w, results)
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Result", "Error")
		for _, r := range results {
			if err := table.Append(fmt.Sprint(r.ID), fmt.Sprint(r.Result), r.Error); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintValue outputs an arbitrary value as JSON for table and json formats,
// or as YAML.
func PrintValue(w io.Writer, v any, format OutputFormat) error {
	if format == FormatYAML {
		return printYAML(w, v)
	}
	return printJSON(w, v)
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printRuleTable(w io.Writer, views []service.RuleView) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Rule", "Created At", "Updated At")

	for _, v := range views {
		source := v.Source
		if len(source) > maxSourceWidth {
			source = source[:maxSourceWidth-3] + "..."
		}
		if err := table.Append(
			fmt.Sprint(v.ID),
			source,
			v.CreatedAt.Format("2006-01-02 15:04"),
			v.UpdatedAt.Format("2006-01-02 15:04"),
		); err != nil {
			return err
		}
	}

	return table.Render()
}
