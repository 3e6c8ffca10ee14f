// Package namesync keeps published translated-name artifacts in sync with
// their authoritative store.
//
// A Client owns the collaborators (a store reader, an artifact fetcher and
// an artifact publisher) and the dataset schemas. Each run reconciles every
// selected dataset independently: a failure in one dataset is reported and
// the next one still runs.
//
// Example usage:
//
//	client, err := namesync.New(
//	    namesync.WithStore(store),
//	    namesync.WithArtifact(artifact),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	report, err := client.Run(ctx, sync.WithDryRun(true))
package namesync

import (
	"context"
	"io"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sync"
)

// Outcome types of a run, re-exported for callers of the client.
type (
	Report     = sync.Report
	Result     = sync.Result
	Comparison = sync.Comparison
)

// Client reconciles dataset artifacts.
type Client interface {
	// Run reconciles every selected dataset and returns the run report
	Run(ctx context.Context, opts ...sync.Option) (*sync.Report, error)

	// Compare fetches and diffs one dataset without publishing
	Compare(ctx context.Context, name string, opts ...sync.Option) (*sync.Comparison, error)

	// Datasets returns the configured dataset schemas
	Datasets() []*dataset.Schema

	// OnResult registers a callback invoked after each dataset pipeline
	OnResult(ResultHook)

	// OnPublished registers a callback invoked after each published artifact
	OnPublished(PublishedHook)

	// Close releases backend resources
	Close() error
}

// client is the internal implementation of the Client interface
type client struct {
	config *config
	hooks  *hooks
}

// New creates a client. A store and an artifact fetcher are required.
func New(opts ...Option) (Client, error) {
	c := &client{
		config: defaultConfig(),
		hooks:  newHooks(),
	}

	if err := c.options(opts...); err != nil {
		return nil, err
	}

	var missing []string
	if c.config.store == nil {
		missing = append(missing, "store")
	}
	if c.config.fetcher == nil {
		missing = append(missing, "artifact fetcher")
	}
	if len(missing) > 0 {
		return nil, &errors.ConfigError{Component: "namesync", Message: "required collaborators not configured", Missing: missing}
	}

	for _, s := range c.config.schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Datasets returns the configured dataset schemas.
func (c *client) Datasets() []*dataset.Schema {
	return c.config.schemas
}

// OnResult registers a callback invoked after each dataset pipeline.
func (c *client) OnResult(fn ResultHook) {
	c.hooks.OnResult(fn)
}

// OnPublished registers a callback invoked after each published artifact.
func (c *client) OnPublished(fn PublishedHook) {
	c.hooks.OnPublished(fn)
}

// Close closes any collaborator that holds resources.
func (c *client) Close() error {
	var errs []error
	seen := make(map[any]bool)
	for _, v := range []any{c.config.store, c.config.fetcher, c.config.publisher} {
		closer, ok := v.(io.Closer)
		if !ok || seen[closer] {
			continue
		}
		seen[closer] = true
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *client) backends() sync.Backends {
	return sync.Backends{
		Store:     c.config.store,
		Fetcher:   c.config.fetcher,
		Publisher: c.config.publisher,
	}
}
