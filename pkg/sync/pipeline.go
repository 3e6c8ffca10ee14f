package sync

import (
	"context"
	"time"

	"github.com/agentstation/utc"
	"golang.org/x/sync/errgroup"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/differ"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/publish"
	"github.com/pokecompanion/namesync/pkg/sources"
)

// Fetch sources reported in FetchError.
const (
	SourceStore    = "store"
	SourceArtifact = "artifact"
)

// Pipeline reconciles one dataset.
type Pipeline struct {
	schema    *dataset.Schema
	store     sources.StoreReader
	fetcher   sources.ArtifactFetcher
	publisher sources.ArtifactPublisher
	options   *Options
}

// NewPipeline creates a pipeline for schema. The publisher may be nil when
// the pipeline is only used for Compare or dry runs.
func NewPipeline(schema *dataset.Schema, store sources.StoreReader, fetcher sources.ArtifactFetcher, publisher sources.ArtifactPublisher, opts ...Option) *Pipeline {
	return &Pipeline{
		schema:    schema,
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		options:   Defaults().Apply(opts...),
	}
}

// Schema returns the dataset schema.
func (p *Pipeline) Schema() *dataset.Schema {
	return p.schema
}

// Compare fetches both snapshots concurrently, normalizes them, aligns them
// by id and diffs them. It never calls the publisher.
func (p *Pipeline) Compare(ctx context.Context) (*Comparison, error) {
	if p.store == nil || p.fetcher == nil {
		return nil, errors.NewConfigError("sync", "pipeline "+p.schema.Name+" needs a store and an artifact fetcher", nil)
	}
	logger := logging.FromContext(ctx)

	var storeRecords, artifactRecords []dataset.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := p.store.ReadRecords(gctx, p.schema.Collection, p.schema.SortKey)
		if err != nil {
			return errors.WrapFetch(p.schema.Name, SourceStore, err)
		}
		storeRecords = records
		return nil
	})
	g.Go(func() error {
		records, err := p.fetcher.FetchArtifact(gctx, p.ref())
		if err != nil {
			return errors.WrapFetch(p.schema.Name, SourceArtifact, err)
		}
		artifactRecords = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info().
		Int("store_records", len(storeRecords)).
		Int("artifact_records", len(artifactRecords)).
		Msg("Fetched snapshots")

	authoritative, err := dataset.NormalizeAll(storeRecords, p.schema, dataset.StoreLayout)
	if err != nil {
		return nil, err
	}
	published, err := dataset.NormalizeAll(artifactRecords, p.schema, dataset.ArtifactLayout)
	if err != nil {
		return nil, err
	}

	sortedA, sortedB := differ.Align(authoritative, published)
	divergences := differ.Diff(sortedA, sortedB, p.options.differOptions()...)

	comparison := &Comparison{
		Schema:        p.schema,
		Authoritative: sortedA,
		Published:     sortedB,
		Divergences:   divergences,
	}

	logger.Info().
		Int("positions", comparison.Positions()).
		Int("divergences", len(divergences)).
		Msg("Compared snapshots")
	for _, d := range divergences {
		logger.Debug().
			Int("index", d.Index).
			Str("reason", string(d.Reason)).
			Str("authoritative", d.Left).
			Str("published", d.Right).
			Msg("Divergence")
	}

	return comparison, nil
}

// Run compares the dataset and publishes the authoritative sequence when it
// diverges. The returned Result is never nil; on failure its status is
// StatusErrored and the error is also returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx = logging.WithDataset(ctx, p.schema.Name)
	logger := logging.FromContext(ctx)

	result := &Result{Dataset: p.schema.Name, StartedAt: utc.Now()}
	fail := func(err error) (*Result, error) {
		result.Status = StatusErrored
		result.Err = err
		result.Duration = time.Since(result.StartedAt.Time)
		return result, err
	}

	comparison, err := p.Compare(ctx)
	if err != nil {
		return fail(err)
	}
	result.StoreCount = len(comparison.Authoritative)
	result.ArtifactCount = len(comparison.Published)
	result.Divergences = comparison.Divergences

	action, err := publish.Decide(p.schema, comparison.Authoritative, comparison.Divergences)
	if err != nil {
		return fail(err)
	}

	switch {
	case action == nil:
		result.Status = StatusUnchanged
		logger.Info().Msg("No changes")
	case p.options.DryRun:
		result.Status = StatusDryRun
		result.Message = action.Message
		logger.Info().
			Str("path", action.Path).
			Int("bytes", len(action.Content)).
			Str("message", action.Message).
			Msg("Dry run, skipping publish")
	default:
		result.Message = action.Message
		commit, err := p.publish(ctx, action)
		if err != nil {
			return fail(err)
		}
		result.Status = StatusPublished
		result.Commit = commit
		logger.Info().
			Str("path", action.Path).
			Str("commit", commit.SHA).
			Int("updates", len(action.Divergences)).
			Msg("Published artifact")
	}

	result.Duration = time.Since(result.StartedAt.Time)
	return result, nil
}

func (p *Pipeline) publish(ctx context.Context, action *publish.Action) (*sources.Commit, error) {
	if p.publisher == nil {
		return nil, errors.NewConfigError("sync", "no artifact publisher configured", nil)
	}

	// Token and Replace target the branch Compare read from.
	ref := sources.Ref{Path: action.Path, Branch: p.options.Branch}
	token, err := p.publisher.Token(ctx, ref)
	if err != nil {
		return nil, errors.WrapResource("token", "artifact", ref.String(), err)
	}

	return p.publisher.Replace(ctx, sources.ReplaceRequest{
		Path:    ref.Path,
		Branch:  ref.Branch,
		Content: action.Content,
		Token:   token,
		Message: action.Message,
	})
}

func (p *Pipeline) ref() sources.Ref {
	return sources.Ref{Path: p.schema.ArtifactPath, Branch: p.options.Branch}
}
