// Package publish decides whether a dataset's published artifact must be
// replaced and builds the replacement body and commit message.
package publish

import (
	"fmt"
	"strings"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/differ"
	"github.com/pokecompanion/namesync/pkg/errors"
)

// Action is a decided artifact replacement.
type Action struct {
	Path        string
	Content     []byte
	Message     string
	Divergences []differ.Divergence
}

// Decide returns nil when there are no divergences. Otherwise it returns an
// Action whose content is the full sorted authoritative sequence.
func Decide(schema *dataset.Schema, sortedAuthoritative []dataset.Entity, divergences []differ.Divergence) (*Action, error) {
	if len(divergences) == 0 {
		return nil, nil
	}
	if schema == nil {
		return nil, errors.NewValidationError("schema", nil, "schema is required to build a publish action")
	}

	content, err := dataset.Marshal(sortedAuthoritative)
	if err != nil {
		return nil, errors.WrapParse("json", schema.ArtifactPath, err)
	}

	return &Action{
		Path:        schema.ArtifactPath,
		Content:     content,
		Message:     Message(schema.Label, divergences),
		Divergences: divergences,
	}, nil
}

// Message builds the commit message: a count line followed by one
// "<label> <index>" line per divergence. Indexes are positions in the sorted
// sequences, not entity ids.
func Message(label string, divergences []differ.Divergence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Auto: %d updates syncd", len(divergences))
	for _, d := range divergences {
		fmt.Fprintf(&b, "\n%s %d", label, d.Index)
	}
	return b.String()
}
