package namesync

import (
	"context"
	"slices"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/sync"
)

// Run reconciles every selected dataset.
func (c *client) Run(ctx context.Context, opts ...sync.Option) (*sync.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	runner := sync.NewRunner(c.backends(), c.config.schemas, c.syncOptions(opts)...)
	report, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	c.hooks.trigger(report)
	return report, nil
}

// Compare fetches, normalizes, aligns and diffs one dataset.
func (c *client) Compare(ctx context.Context, name string, opts ...sync.Option) (*sync.Comparison, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	schema, err := dataset.Lookup(c.config.schemas, name)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithOperation(logging.WithDataset(ctx, name), "compare")
	pipeline := sync.NewPipeline(schema, c.config.store, c.config.fetcher, nil, c.syncOptions(opts)...)
	return pipeline.Compare(ctx)
}

func (c *client) syncOptions(opts []sync.Option) []sync.Option {
	return append(slices.Clone(c.config.syncOptions), opts...)
}
