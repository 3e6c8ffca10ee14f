package differ

import (
	"slices"

	"github.com/pokecompanion/namesync/pkg/dataset"
)

// Option is a functional option for configuring Diff.
type Option func(*options)

type options struct {
	metadata       bool
	ignoredLocales map[string]bool
}

func newOptions(opts ...Option) *options {
	o := &options{ignoredLocales: make(map[string]bool)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMetadata also compares metadata fields. Off by default.
func WithMetadata(enabled bool) Option {
	return func(o *options) {
		o.metadata = enabled
	}
}

// WithIgnoredLocales skips the given locale codes when comparing names.
// Divergence serializations still include every locale.
func WithIgnoredLocales(codes ...string) Option {
	return func(o *options) {
		for _, code := range codes {
			o.ignoredLocales[code] = true
		}
	}
}

func (o *options) locales(ls dataset.Locales) dataset.Locales {
	if len(o.ignoredLocales) == 0 {
		return ls
	}
	return slices.DeleteFunc(slices.Clone(ls), func(l dataset.Locale) bool {
		return o.ignoredLocales[l.Code]
	})
}
