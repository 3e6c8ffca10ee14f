// Package differ aligns two canonical entity sequences by id and reports the
// positions where they disagree.
//
// Comparison is structural and positional: after both sides are sorted, the
// entities at each position must have the same id and identical locale
// entries (same codes, same order, same values, null distinct from "").
// An entity whose published names were irregularly shaped never matches.
// A length mismatch yields a divergence for every position past the
// shorter side.
package differ

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/pokecompanion/namesync/pkg/dataset"
)

// Align returns copies of a and b sorted ascending by id. Entities with equal
// ids keep their input order. The inputs are not modified.
func Align(a, b []dataset.Entity) (sortedA, sortedB []dataset.Entity) {
	return sortByID(a), sortByID(b)
}

func sortByID(in []dataset.Entity) []dataset.Entity {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(x, y dataset.Entity) int {
		return cmp.Compare(x.ID, y.ID)
	})
	return out
}

// Diff walks two aligned sequences up to the longer length and returns one
// Divergence per disagreeing position, in ascending position order.
// Left is the authoritative side and right the published side.
func Diff(left, right []dataset.Entity, opts ...Option) []Divergence {
	o := newOptions(opts...)

	n := max(len(left), len(right))
	divergences := make([]Divergence, 0)
	for i := range n {
		var l, r *dataset.Entity
		if i < len(left) {
			l = &left[i]
		}
		if i < len(right) {
			r = &right[i]
		}

		reason := o.compare(l, r)
		if reason == ReasonNone {
			continue
		}
		divergences = append(divergences, Divergence{
			Index:  i + 1,
			Left:   serialize(l),
			Right:  serialize(r),
			Reason: reason,
		})
	}
	return divergences
}

// LocalesEqual reports whether two locale sequences are identical entry by
// entry. Order matters: the same names in a different order are unequal.
func LocalesEqual(a, b dataset.Locales) bool {
	return slices.EqualFunc(a, b, func(x, y dataset.Locale) bool {
		if x.Code != y.Code {
			return false
		}
		if x.Name == nil || y.Name == nil {
			return x.Name == nil && y.Name == nil
		}
		return *x.Name == *y.Name
	})
}

// MetadataEqual reports whether two metadata lists carry the same names in the
// same order with values that encode to the same JSON.
func MetadataEqual(a, b []dataset.Field) bool {
	return slices.EqualFunc(a, b, func(x, y dataset.Field) bool {
		if x.Name != y.Name {
			return false
		}
		xb, xerr := json.Marshal(x.Value)
		yb, yerr := json.Marshal(y.Value)
		if xerr != nil || yerr != nil {
			return false
		}
		return bytes.Equal(xb, yb)
	})
}

func (o *options) compare(l, r *dataset.Entity) Reason {
	switch {
	case l == nil && r == nil:
		return ReasonNone
	case r == nil:
		return ReasonMissingPublished
	case l == nil:
		return ReasonMissingAuthoritative
	case l.ID != r.ID:
		return ReasonID
	case len(l.Irregular) > 0 || len(r.Irregular) > 0:
		return ReasonNames
	case !LocalesEqual(o.locales(l.Locales), o.locales(r.Locales)):
		return ReasonNames
	case o.metadata && !MetadataEqual(l.Metadata, r.Metadata):
		return ReasonMetadata
	default:
		return ReasonNone
	}
}

func serialize(e *dataset.Entity) string {
	if e == nil {
		return Missing
	}
	if len(e.Irregular) > 0 {
		return e.Locales.String() + " (" + strings.Join(e.Irregular, "; ") + ")"
	}
	return e.Locales.String()
}
