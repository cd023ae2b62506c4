package main

import (
	"fmt"
	"os"

	"github.com/CodeEternity01/Rule-Engine-with-AST/cmd/rulectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
