// Package run provides the run command implementation.
package run

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pokecompanion/namesync/cmd/application"
)

// Flags holds the run command flags.
type Flags struct {
	DryRun          bool
	Datasets        []string
	Timeout         time.Duration
	Branch          string
	CompareMetadata bool
	IgnoredLocales  []string
}

// NewCommand creates the run command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Publish artifacts that diverged from the store",
		Long: `Run reconciles every selected dataset with its published artifact.

For each dataset the command will:
• Fetch the authoritative records and the published artifact
• Normalize both sides and align them by id
• Diff the aligned sequences position by position
• Replace the artifact with the authoritative sequence when they diverge

Datasets run one after another. A failing dataset is reported and the
remaining datasets still run; the command exits non-zero if any failed.`,
		Example: `  namesync run                          # Reconcile every dataset
  namesync run --dry-run                # Report divergences without publishing
  namesync run --dataset moves          # Reconcile only moves
  namesync run --timeout 2m -o json     # Bound the run and print JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "compute divergences without publishing")
	cmd.Flags().StringSliceVarP(&flags.Datasets, "dataset", "d", nil, "dataset to reconcile (repeatable, default all)")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "overall run timeout (0 disables)")
	cmd.Flags().StringVar(&flags.Branch, "branch", "", "branch to diff against and publish to (default from config)")
	cmd.Flags().BoolVar(&flags.CompareMetadata, "compare-metadata", false, "treat metadata differences as divergences")
	cmd.Flags().StringSliceVar(&flags.IgnoredLocales, "ignore-locale", nil, "locale code to leave out of comparisons (repeatable)")

	return cmd
}
