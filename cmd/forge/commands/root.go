package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forge",
		Short: "ToolForge - Development Environment Installer",
		Long: `ToolForge assembles complete development environments from a component
catalog: it resolves dependencies into an installation order, checks the
host has the resources to carry it, installs each component through the
best available backend, and verifies the result.

Features:
  - Dependency and conflict resolution with deterministic ordering
  - Host resource validation (RAM, disk, CPU, GPU, network)
  - Ranked installation methods with classified retries
  - Post-install verification
  - Local installation history`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newSnapshotCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newCatalogCommand())

	return rootCmd
}
