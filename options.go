package namesync

import (
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sources"
	"github.com/pokecompanion/namesync/pkg/sync"
)

// config holds the collaborators and defaults of a client
type config struct {
	store       sources.StoreReader
	fetcher     sources.ArtifactFetcher
	publisher   sources.ArtifactPublisher
	schemas     []*dataset.Schema
	syncOptions []sync.Option
}

func defaultConfig() *config {
	return &config{
		schemas: dataset.Builtin(),
	}
}

// Option is a function that configures a Client
type Option func(*config) error

func (c *client) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c.config); err != nil {
			return err
		}
	}
	return nil
}

// WithStore sets the authoritative store reader
func WithStore(store sources.StoreReader) Option {
	return func(c *config) error {
		c.store = store
		return nil
	}
}

// WithArtifact sets a backend that both fetches and publishes artifacts
func WithArtifact(artifact sources.Artifact) Option {
	return func(c *config) error {
		c.fetcher = artifact
		c.publisher = artifact
		return nil
	}
}

// WithFetcher sets the artifact fetcher
func WithFetcher(fetcher sources.ArtifactFetcher) Option {
	return func(c *config) error {
		c.fetcher = fetcher
		return nil
	}
}

// WithPublisher sets the artifact publisher
func WithPublisher(publisher sources.ArtifactPublisher) Option {
	return func(c *config) error {
		c.publisher = publisher
		return nil
	}
}

// WithSchemas replaces the built-in dataset schemas
func WithSchemas(schemas ...*dataset.Schema) Option {
	return func(c *config) error {
		if len(schemas) == 0 {
			return errors.NewValidationError("schemas", nil, "at least one dataset schema is required")
		}
		c.schemas = schemas
		return nil
	}
}

// WithSchemasFile loads dataset schemas from a YAML file
func WithSchemasFile(path string) Option {
	return func(c *config) error {
		schemas, err := dataset.LoadSchemas(path)
		if err != nil {
			return err
		}
		c.schemas = schemas
		return nil
	}
}

// WithSyncOptions sets defaults applied before per-call options
func WithSyncOptions(opts ...sync.Option) Option {
	return func(c *config) error {
		c.syncOptions = append(c.syncOptions, opts...)
		return nil
	}
}
