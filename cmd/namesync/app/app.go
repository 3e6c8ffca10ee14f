// Package app provides the application context and dependency management
// for the namesync CLI. It centralizes configuration, logging and the
// lifecycle of the namesync client.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pokecompanion/namesync"
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
)

// App represents the namesync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	stdout io.Writer

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client namesync.Client
}

// New creates a new App instance with the given version information.
// Configuration is loaded from the environment and can be customized
// using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stdout:  os.Stdout,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Stdout returns the writer command results are printed to.
func (a *App) Stdout() io.Writer {
	return a.stdout
}

// Schemas returns the configured dataset schemas.
func (a *App) Schemas() ([]*dataset.Schema, error) {
	return a.config.schemas()
}

// Client returns the namesync client, creating it lazily if needed.
// Configuration is validated on first use so commands that need no
// backends run without credentials.
func (a *App) Client() (namesync.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.config.clientOptions()
	if err != nil {
		return nil, err
	}

	client, err := namesync.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}

	client.OnPublished(func(r *namesync.Result) {
		if r.Commit == nil {
			return
		}
		a.logger.Info().
			Str("dataset", r.Dataset).
			Str("commit", r.Commit.SHA).
			Str("url", r.Commit.URL).
			Msg("Artifact published")
	})

	a.client = client
	return client, nil
}

// Shutdown releases the client's backend resources.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(client namesync.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}

// WithStdout sets the writer command results are printed to.
func WithStdout(w io.Writer) Option {
	return func(a *App) error {
		a.stdout = w
		return nil
	}
}

// installLogger makes logger the process default used by packages that
// log without a context logger.
func installLogger(logger *zerolog.Logger) {
	logging.SetDefault(*logger)
}
