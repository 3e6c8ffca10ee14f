// Package sync runs dataset pipelines: fetch both snapshots concurrently,
// normalize, align, diff and, when they diverge, replace the published
// artifact with the authoritative sequence.
package sync

import (
	"slices"
	"time"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/differ"
	"github.com/pokecompanion/namesync/pkg/errors"
)

// Options controls pipeline and runner behavior.
type Options struct {
	DryRun          bool          // Build and log the publish action without calling the publisher
	Timeout         time.Duration // Overall deadline for a run (0 means none)
	Branch          string        // Branch the artifact is read from and committed to (empty means the backend's)
	Datasets        []string      // Which datasets to run (empty means all)
	CompareMetadata bool          // Also diff metadata fields
	IgnoredLocales  []string      // Locale codes left out of the comparison
}

// Option is a function that configures Options.
type Option func(*Options)

// Defaults returns the default options.
func Defaults() *Options {
	return &Options{}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the options against the configured schemas.
func (o *Options) Validate(schemas []*dataset.Schema) error {
	if o.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   o.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	for _, name := range o.Datasets {
		if _, err := dataset.Lookup(schemas, name); err != nil {
			return &errors.ValidationError{
				Field:   "Datasets",
				Value:   name,
				Message: "unknown dataset " + name,
			}
		}
	}
	return nil
}

// Selected reports whether a dataset should run.
func (o *Options) Selected(name string) bool {
	return len(o.Datasets) == 0 || slices.Contains(o.Datasets, name)
}

func (o *Options) differOptions() []differ.Option {
	opts := []differ.Option{differ.WithMetadata(o.CompareMetadata)}
	if len(o.IgnoredLocales) > 0 {
		opts = append(opts, differ.WithIgnoredLocales(o.IgnoredLocales...))
	}
	return opts
}

// WithDryRun skips publishing.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithTimeout sets an overall deadline for a run.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithBranch sets the branch both read and written.
func WithBranch(branch string) Option {
	return func(o *Options) {
		if branch != "" {
			o.Branch = branch
		}
	}
}

// WithDatasets restricts a run to the named datasets.
func WithDatasets(names ...string) Option {
	return func(o *Options) {
		o.Datasets = append(o.Datasets, names...)
	}
}

// WithCompareMetadata also diffs metadata fields.
func WithCompareMetadata(enabled bool) Option {
	return func(o *Options) {
		o.CompareMetadata = enabled
	}
}

// WithIgnoredLocales leaves locale codes out of the comparison.
func WithIgnoredLocales(codes ...string) Option {
	return func(o *Options) {
		o.IgnoredLocales = append(o.IgnoredLocales, codes...)
	}
}
