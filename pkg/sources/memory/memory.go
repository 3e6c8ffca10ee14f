// Package memory provides in-memory store and artifact backends.
package memory

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sources"
)

// Store is an in-memory StoreReader.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]dataset.Record
	err         error
	reads       int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{collections: make(map[string][]dataset.Record)}
}

// ID returns the backend id.
func (s *Store) ID() sources.ID { return sources.MemoryID }

// Put replaces a collection's records.
func (s *Store) Put(collection string, records ...dataset.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = cloneRecords(records)
}

// FailWith makes every subsequent read return err.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Reads returns the number of ReadRecords calls.
func (s *Store) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads
}

// ReadRecords returns a copy of the collection sorted by sortKey.
func (s *Store) ReadRecords(ctx context.Context, collection, sortKey string) ([]dataset.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	records, ok := s.collections[collection]
	if !ok {
		return nil, errors.NewNotFoundError("collection", collection)
	}

	out := cloneRecords(records)
	slices.SortStableFunc(out, func(a, b dataset.Record) int {
		return cmp.Compare(sortValue(a[sortKey]), sortValue(b[sortKey]))
	})
	return out, nil
}

// Artifact is an in-memory ArtifactFetcher and ArtifactPublisher. Each file
// carries a version counter used as its precondition token.
type Artifact struct {
	mu       sync.RWMutex
	files    map[string][]byte
	versions map[string]int
	commits  []sources.ReplaceRequest
	fetchErr error
	calls    int
}

// NewArtifact creates an empty artifact backend.
func NewArtifact() *Artifact {
	return &Artifact{
		files:    make(map[string][]byte),
		versions: make(map[string]int),
	}
}

// ID returns the backend id.
func (a *Artifact) ID() sources.ID { return sources.MemoryID }

// Put stores content at path and bumps its version.
func (a *Artifact) Put(path string, content []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[path] = bytes.Clone(content)
	a.versions[path]++
}

// PutEntities stores the JSON form of entities at path.
func (a *Artifact) PutEntities(path string, entities []dataset.Entity) error {
	body, err := dataset.Marshal(entities)
	if err != nil {
		return err
	}
	a.Put(path, body)
	return nil
}

// Content returns the current content at path.
func (a *Artifact) Content(path string) []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return bytes.Clone(a.files[path])
}

// FailFetchWith makes every subsequent fetch return err.
func (a *Artifact) FailFetchWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetchErr = err
}

// Commits returns the accepted replacements in order.
func (a *Artifact) Commits() []sources.ReplaceRequest {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.commits)
}

// PublisherCalls returns the number of Token and Replace calls.
func (a *Artifact) PublisherCalls() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calls
}

// FetchArtifact decodes the JSON array at ref.Path. Branches are not modeled.
func (a *Artifact) FetchArtifact(ctx context.Context, ref sources.Ref) ([]dataset.Record, error) {
	path := ref.Path
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	body, ok := a.files[path]
	fetchErr := a.fetchErr
	a.mu.RUnlock()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if !ok {
		return nil, errors.NewNotFoundError("artifact", path)
	}

	var records []dataset.Record
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return records, nil
}

// Token returns the current version of ref.Path.
func (a *Artifact) Token(ctx context.Context, ref sources.Ref) (string, error) {
	path := ref.Path
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++

	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok := a.versions[path]
	if !ok {
		return "", errors.NewNotFoundError("artifact", path)
	}
	return strconv.Itoa(v), nil
}

// Replace stores new content when req.Token matches the current version.
func (a *Artifact) Replace(ctx context.Context, req sources.ReplaceRequest) (*sources.Commit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current := strconv.Itoa(a.versions[req.Path])
	if req.Token != current {
		return nil, errors.NewPublishPreconditionError(req.Path, req.Token, fmt.Errorf("current version is %s", current))
	}

	a.files[req.Path] = bytes.Clone(req.Content)
	a.versions[req.Path]++
	req.Content = bytes.Clone(req.Content)
	a.commits = append(a.commits, req)

	token := strconv.Itoa(a.versions[req.Path])
	return &sources.Commit{SHA: fmt.Sprintf("mem-%d", len(a.commits)), Token: token}, nil
}

func cloneRecords(records []dataset.Record) []dataset.Record {
	out := make([]dataset.Record, len(records))
	for i, r := range records {
		out[i] = maps.Clone(r)
	}
	return out
}

// sortValue orders numeric-looking values numerically.
func sortValue(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
