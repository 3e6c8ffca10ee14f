package app

import (
	"github.com/spf13/cobra"

	"github.com/pokecompanion/namesync/cmd/namesync/cmd/datasets"
	"github.com/pokecompanion/namesync/cmd/namesync/cmd/diff"
	"github.com/pokecompanion/namesync/cmd/namesync/cmd/run"
	"github.com/pokecompanion/namesync/cmd/namesync/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(run.NewCommand(a))
	rootCmd.AddCommand(diff.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(datasets.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}
