package app

import (
	"io"

	"github.com/pokecompanion/namesync"
	"github.com/pokecompanion/namesync/internal/sources/github"
	"github.com/pokecompanion/namesync/internal/sources/objectstore"
	"github.com/pokecompanion/namesync/internal/sources/pocketbase"
	"github.com/pokecompanion/namesync/internal/sources/sqlstore"
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sources"
	"github.com/pokecompanion/namesync/pkg/sync"
)

// buildStore creates the authoritative store reader selected by the config.
func (c *Config) buildStore() (sources.StoreReader, error) {
	switch c.StoreBackend {
	case StorePocketBase:
		return pocketbase.New(c.PocketBaseURL, c.AdminEmail, c.AdminPassword), nil
	case StoreSQLite:
		store, err := sqlstore.Open(c.SQLitePath)
		if err != nil {
			return nil, errors.WrapResource("open", "store", c.SQLitePath, err)
		}
		return store, nil
	default:
		return nil, errors.NewValidationError("STORE_BACKEND", c.StoreBackend, "unknown store backend")
	}
}

// buildArtifact creates the artifact backend selected by the config.
func (c *Config) buildArtifact() (sources.Artifact, error) {
	switch c.ArtifactBackend {
	case ArtifactGitHub:
		return github.New(github.Config{
			Owner:      c.GitHubOwner,
			Repo:       c.GitHubRepo,
			Branch:     c.GitHubBranch,
			Token:      c.GitHubToken,
			APIURL:     c.GitHubAPIURL,
			RawURL:     c.GitHubRawURL,
			PublishRPS: c.PublishRPS,
		}), nil
	case ArtifactS3:
		store, err := objectstore.New(objectstore.Config{
			Endpoint:  c.S3Endpoint,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Region:    c.S3Region,
			UseSSL:    c.S3UseSSL,
			Prefix:    c.S3Prefix,
		})
		if err != nil {
			return nil, errors.WrapResource("create", "artifact", c.S3Bucket, err)
		}
		return store, nil
	default:
		return nil, errors.NewValidationError("ARTIFACT_BACKEND", c.ArtifactBackend, "unknown artifact backend")
	}
}

// schemas returns the dataset schemas from DATASETS_FILE or the built-ins.
func (c *Config) schemas() ([]*dataset.Schema, error) {
	if c.DatasetsFile == "" {
		return dataset.Builtin(), nil
	}
	return dataset.LoadSchemas(c.DatasetsFile)
}

// clientOptions assembles the namesync options for the configured backends.
func (c *Config) clientOptions() ([]namesync.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	schemas, err := c.schemas()
	if err != nil {
		return nil, err
	}

	store, err := c.buildStore()
	if err != nil {
		return nil, err
	}

	artifact, err := c.buildArtifact()
	if err != nil {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, err
	}

	return []namesync.Option{
		namesync.WithStore(store),
		namesync.WithArtifact(artifact),
		namesync.WithSchemas(schemas...),
		namesync.WithSyncOptions(sync.WithBranch(c.GitHubBranch)),
	}, nil
}
