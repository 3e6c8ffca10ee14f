package sync

import (
	"context"
	"fmt"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/sources"
)

// Backends are the collaborators shared by every pipeline of a run.
type Backends struct {
	Store     sources.StoreReader
	Fetcher   sources.ArtifactFetcher
	Publisher sources.ArtifactPublisher
}

// Runner runs one pipeline per schema, sequentially. A failing dataset is
// recorded in the report and does not stop the others.
type Runner struct {
	backends Backends
	schemas  []*dataset.Schema
	options  *Options
}

// NewRunner creates a runner over the given schemas.
func NewRunner(backends Backends, schemas []*dataset.Schema, opts ...Option) *Runner {
	return &Runner{
		backends: backends,
		schemas:  schemas,
		options:  Defaults().Apply(opts...),
	}
}

// Pipelines returns the pipelines selected by the runner's options.
func (r *Runner) Pipelines() []*Pipeline {
	var pipelines []*Pipeline
	for _, schema := range r.schemas {
		if !r.options.Selected(schema.Name) {
			continue
		}
		pipelines = append(pipelines, &Pipeline{
			schema:    schema,
			store:     r.backends.Store,
			fetcher:   r.backends.Fetcher,
			publisher: r.backends.Publisher,
			options:   r.options,
		})
	}
	return pipelines
}

// Run executes every selected pipeline and returns the report. The error is
// non-nil only when the options are invalid; pipeline failures are in the
// report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.options.Validate(r.schemas); err != nil {
		return nil, err
	}

	if r.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.options.Timeout)
		defer cancel()
	}

	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    r.options.DryRun,
		StartedAt: utc.Now(),
	}
	ctx = logging.WithRun(ctx, report.RunID)
	logger := logging.FromContext(ctx)

	logger.Info().
		Bool("dry_run", r.options.DryRun).
		Str("store", sources.NameOf(r.backends.Store)).
		Str("artifact", sources.NameOf(r.backends.Fetcher)).
		Msg("Starting sync run")

	for _, p := range r.Pipelines() {
		if ctx.Err() != nil {
			report.Results = append(report.Results, canceled(ctx, p.schema.Name))
			continue
		}
		result, err := p.Run(ctx)
		if err != nil {
			logger.Error().Err(err).Str("dataset", p.schema.Name).Msg("Dataset sync failed")
		}
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = utc.Now()
	logger.Info().
		Int("published", report.Count(StatusPublished)).
		Int("unchanged", report.Count(StatusUnchanged)).
		Int("dry_run", report.Count(StatusDryRun)).
		Int("errored", report.Count(StatusErrored)).
		Dur("duration", report.Duration()).
		Msg(report.Summary())

	return report, nil
}

// canceled records a dataset skipped because the run's context ended.
func canceled(ctx context.Context, name string) *Result {
	return &Result{
		Dataset:   name,
		Status:    StatusErrored,
		Err:       fmt.Errorf("%w: %w", errors.ErrCanceled, context.Cause(ctx)),
		StartedAt: utc.Now(),
	}
}
