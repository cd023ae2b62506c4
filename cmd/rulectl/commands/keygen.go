package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/auth"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an admin API key",
	Long: `Generate a random admin API key and its bcrypt hash. Give the key to
clients and set ADMIN_API_KEY on the server to the hash.

Example:
  rulectl keygen`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateAPIKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return fmt.Errorf("failed to hash key: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "key:  %s\n", key)
		fmt.Fprintf(out, "hash: %s\n", hash)
		if !quiet {
			fmt.Fprintln(out, "\nThe key is shown once. Store it now.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
