// Package diff provides the diff command implementation.
package diff

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pokecompanion/namesync/cmd/application"
	"github.com/pokecompanion/namesync/internal/cmd/output"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sync"
)

// Flags holds the diff command flags.
type Flags struct {
	CompareMetadata bool
	IgnoredLocales  []string
	ExitCode        bool
}

// NewCommand creates the diff command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "diff <dataset>",
		GroupID: "core",
		Short:   "Show divergences between the store and the published artifact",
		Long: `Diff fetches one dataset from both sides, aligns them by id and lists
every diverging position. Nothing is published.

Each divergence shows its 1-based position, the reason and both sides
serialized; a side with no entity at that position prints as "missing".`,
		Example: `  namesync diff pokemon
  namesync diff moves --ignore-locale ja-hrkt
  namesync diff moves --exit-code        # exit non-zero when diverged`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd.Context(), app, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.CompareMetadata, "compare-metadata", false, "treat metadata differences as divergences")
	cmd.Flags().StringSliceVar(&flags.IgnoredLocales, "ignore-locale", nil, "locale code to leave out of comparisons (repeatable)")
	cmd.Flags().BoolVar(&flags.ExitCode, "exit-code", false, "exit non-zero when the dataset diverged")

	return cmd
}

// Execute compares one dataset and prints its divergences.
func Execute(ctx context.Context, app application.Application, name string, flags *Flags) error {
	client, err := app.Client()
	if err != nil {
		return err
	}

	var opts []sync.Option
	if flags.CompareMetadata {
		opts = append(opts, sync.WithCompareMetadata(true))
	}
	if len(flags.IgnoredLocales) > 0 {
		opts = append(opts, sync.WithIgnoredLocales(flags.IgnoredLocales...))
	}

	comparison, err := client.Compare(ctx, name, opts...)
	if err != nil {
		return err
	}

	if err := output.Print(app.Stdout(), app.OutputFormat(), output.NewComparisonView(comparison)); err != nil {
		return err
	}

	if flags.ExitCode && len(comparison.Divergences) > 0 {
		return errors.ErrDiverged
	}
	return nil
}
