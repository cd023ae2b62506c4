package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/cli"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/client"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rulectl",
	Short: "CLI tool for managing rules",
	Long: `rulectl manages rules stored in the rule engine service.

Rules are conditions such as "age > 30 AND department = 'Sales'". The CLI
can create, combine, modify and delete them, and evaluate them against
JSON data.

Examples:
  rulectl create "age > 30 AND department = 'Sales'"
  rulectl list --format json
  rulectl combine 1 2
  rulectl evaluate 3 --data '{"age": 35, "department": "Sales"}'
  rulectl parse "(a = 1 OR b = 2) AND c = 3"`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the rule service")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Admin API key for write commands")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment from the config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

func newClient() (*client.Client, error) {
	envCfg, err := cli.GetEnvConfig(env, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(envCfg.BaseURL, envCfg.APIKey), nil
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(format)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid rule id %q: must be a positive integer", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// loadData reads the record to evaluate from an inline JSON string or from
// a JSON or YAML file.
func loadData(inline, file string) (map[string]any, error) {
	switch {
	case inline != "" && file != "":
		return nil, fmt.Errorf("use either --data or --data-file, not both")
	case inline != "":
		dec := json.NewDecoder(strings.NewReader(inline))
		dec.UseNumber()
		var data map[string]any
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("invalid data JSON: %w", err)
		}
		return data, nil
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
		var data map[string]any
		if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
			return nil, fmt.Errorf("failed to parse data file: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("--data or --data-file is required")
	}
}
