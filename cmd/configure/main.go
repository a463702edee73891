package main

import (
	"fmt"
	"os"

	"github.com/benvon/apigate/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "apigate-configure",
		Short: "Configuration tool for the API gateway",
		Long:  "CLI tool for managing API keys and downstream service configuration",
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewKeysCmd())
	rootCmd.AddCommand(commands.NewServicesCmd())
	rootCmd.AddCommand(commands.NewSeedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
