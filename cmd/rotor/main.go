package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/rotor/cmd/rotor/commands"
	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "rotor",
		Short: "Credential rotation for secret stores and cloud resources",
		Long: `rotor rotates the credentials declared in rotor.yaml: generic secrets,
database administrator passwords, database users, and storage account keys.
Each rotation writes the new credential back to the configured secret store.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "rotor.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewInitializeCommand(cfg),
		commands.NewRotateCommand(cfg),
		commands.NewStrategiesCommand(cfg),
		commands.NewStoresCommand(cfg),
	)

	return rootCmd.Execute()
}
