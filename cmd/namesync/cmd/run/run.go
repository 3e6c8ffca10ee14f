package run

import (
	"context"

	"github.com/pokecompanion/namesync/cmd/application"
	"github.com/pokecompanion/namesync/internal/cmd/output"
	"github.com/pokecompanion/namesync/pkg/sync"
)

// BuildOptions converts flags into run options.
func BuildOptions(flags *Flags) []sync.Option {
	var opts []sync.Option

	if flags.DryRun {
		opts = append(opts, sync.WithDryRun(true))
	}
	if len(flags.Datasets) > 0 {
		opts = append(opts, sync.WithDatasets(flags.Datasets...))
	}
	if flags.Timeout > 0 {
		opts = append(opts, sync.WithTimeout(flags.Timeout))
	}
	if flags.Branch != "" {
		opts = append(opts, sync.WithBranch(flags.Branch))
	}
	if flags.CompareMetadata {
		opts = append(opts, sync.WithCompareMetadata(true))
	}
	if len(flags.IgnoredLocales) > 0 {
		opts = append(opts, sync.WithIgnoredLocales(flags.IgnoredLocales...))
	}

	return opts
}

// Execute runs every selected dataset pipeline and prints the report.
func Execute(ctx context.Context, app application.Application, flags *Flags) error {
	logger := app.Logger()

	client, err := app.Client()
	if err != nil {
		return err
	}

	report, err := client.Run(ctx, BuildOptions(flags)...)
	if err != nil {
		return err
	}

	if err := output.Print(app.Stdout(), app.OutputFormat(), output.NewReportView(report)); err != nil {
		return err
	}

	if report.HasErrors() {
		logger.Error().
			Int("errored", report.Count(sync.StatusErrored)).
			Int("datasets", len(report.Results)).
			Msg("Run finished with errors")
		return report.Err()
	}
	return nil
}
