// Package sources defines the collaborators a dataset pipeline talks to:
// the authoritative store it reads records from, and the published artifact
// it reads and, when needed, replaces.
//
// Backends live under internal/sources. Tests use the in-memory
// implementations in the memory subpackage.
//
// Example usage:
//
//	ref := sources.Ref{Path: schema.ArtifactPath, Branch: "main"}
//	records, err := store.ReadRecords(ctx, schema.Collection, schema.SortKey)
//	published, err := fetcher.FetchArtifact(ctx, ref)
//
//	token, err := publisher.Token(ctx, ref)
//	commit, err := publisher.Replace(ctx, sources.ReplaceRequest{
//	    Path:    ref.Path,
//	    Branch:  ref.Branch,
//	    Content: action.Content,
//	    Token:   token,
//	    Message: action.Message,
//	})
package sources

import (
	"context"
	"slices"

	"github.com/pokecompanion/namesync/pkg/dataset"
)

// ID identifies a backend implementation.
type ID string

// String returns the string representation of a backend id.
func (id ID) String() string {
	return string(id)
}

// Backend ids.
const (
	PocketBaseID ID = "pocketbase"
	SQLiteID     ID = "sqlite"
	GitHubID     ID = "github"
	S3ID         ID = "s3"
	MemoryID     ID = "memory"
)

// StoreIDs returns the authoritative store backends.
func StoreIDs() []ID {
	return []ID{PocketBaseID, SQLiteID}
}

// ArtifactIDs returns the published artifact backends.
func ArtifactIDs() []ID {
	return []ID{GitHubID, S3ID}
}

// IsStore reports whether id names a store backend.
func (id ID) IsStore() bool {
	return slices.Contains(StoreIDs(), id)
}

// IsArtifact reports whether id names an artifact backend.
func (id ID) IsArtifact() bool {
	return slices.Contains(ArtifactIDs(), id)
}

// StoreReader reads the authoritative record set of a collection.
type StoreReader interface {
	// ReadRecords returns every record of the collection sorted by sortKey.
	ReadRecords(ctx context.Context, collection, sortKey string) ([]dataset.Record, error)
}

// Ref locates a published artifact. An empty Branch selects the backend's
// configured branch; backends without branches ignore it.
type Ref struct {
	Path   string
	Branch string
}

// String returns path, or path@branch when a branch is set.
func (r Ref) String() string {
	if r.Branch == "" {
		return r.Path
	}
	return r.Path + "@" + r.Branch
}

// ArtifactFetcher reads the currently published artifact.
type ArtifactFetcher interface {
	// FetchArtifact returns the published JSON array at ref, decoded.
	FetchArtifact(ctx context.Context, ref Ref) ([]dataset.Record, error)
}

// ArtifactPublisher replaces the published artifact.
type ArtifactPublisher interface {
	// Token returns the precondition token of the artifact at ref.
	// Replace must be called with the same path and branch.
	Token(ctx context.Context, ref Ref) (string, error)

	// Replace writes new content at path. A stale token must fail with
	// an error matching errors.ErrPrecondition.
	Replace(ctx context.Context, req ReplaceRequest) (*Commit, error)
}

// Artifact combines fetching and publishing for backends that do both.
type Artifact interface {
	ArtifactFetcher
	ArtifactPublisher
}

// ReplaceRequest describes one wholesale artifact replacement.
type ReplaceRequest struct {
	Path    string
	Content []byte
	Token   string
	Branch  string
	Message string
}

// Ref returns the location the request writes to.
func (r ReplaceRequest) Ref() Ref {
	return Ref{Path: r.Path, Branch: r.Branch}
}

// Commit describes a completed replacement.
type Commit struct {
	// SHA is the commit or version id reported by the backend.
	SHA string
	// Token is the new precondition token of the artifact.
	Token string
	URL   string
}

// Identifier is implemented by backends that can name themselves in logs.
type Identifier interface {
	ID() ID
}

// NameOf returns a backend's id, or "custom" when it does not implement Identifier.
func NameOf(v any) string {
	if i, ok := v.(Identifier); ok {
		return i.ID().String()
	}
	return "custom"
}
