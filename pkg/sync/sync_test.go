package sync_test

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/differ"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/sources"
	"github.com/pokecompanion/namesync/pkg/sources/memory"
	"github.com/pokecompanion/namesync/pkg/sync"
)

func moveRecord(id int, en string) dataset.Record {
	return dataset.Record{"move_id": id, "en": en, "de": en}
}

func pokemonRecord(id, gen int, en string) dataset.Record {
	return dataset.Record{"national_dex": id, "generation": gen, "redirect": nil, "en": en}
}

type fixture struct {
	store    *memory.Store
	artifact *memory.Artifact
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), artifact: memory.NewArtifact()}

	f.store.Put("moves", moveRecord(2, "Karate Chop"), moveRecord(1, "Pound"))
	f.store.Put("pokemon_names", pokemonRecord(1, 1, "Bulbasaur"), pokemonRecord(4, 1, "Charmander"))

	f.artifact.Put("src/lib/data/moves.json", []byte(`[{"id":1,"names":[{"en":"Pound"},{"de":"Pound"}]}]`))
	f.artifact.Put("src/lib/data/pokemonNames.json", []byte(`[]`))
	return f
}

func (f *fixture) backends() sync.Backends {
	return sync.Backends{Store: f.store, Fetcher: f.artifact, Publisher: f.artifact}
}

func TestPipelinePublishesAuthoritativeSequence(t *testing.T) {
	f := newFixture(t)
	p := sync.NewPipeline(dataset.Moves(), f.store, f.artifact, f.artifact, sync.WithBranch("release"))

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sync.StatusPublished, result.Status)
	assert.Equal(t, 2, result.StoreCount)
	assert.Equal(t, 1, result.ArtifactCount)
	require.Len(t, result.Divergences, 1)
	assert.Equal(t, 2, result.Divergences[0].Index)
	require.NotNil(t, result.Commit)

	commits := f.artifact.Commits()
	require.Len(t, commits, 1)
	assert.Equal(t, "release", commits[0].Branch)
	assert.Equal(t, "Auto: 1 updates syncd\nMove 2", commits[0].Message)

	want := `[{"id":1,"names":[{"en":"Pound"},{"de":"Pound"},{"es":null},{"fr":null},{"it":null},{"ja-hrkt":null},{"zh-hans":null}]},` +
		`{"id":2,"names":[{"en":"Karate Chop"},{"de":"Karate Chop"},{"es":null},{"fr":null},{"it":null},{"ja-hrkt":null},{"zh-hans":null}]}]`
	assert.Equal(t, want, string(f.artifact.Content("src/lib/data/moves.json")))
}

func TestPipelineIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := sync.NewPipeline(dataset.Pokemon(), f.store, f.artifact, f.artifact)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sync.StatusPublished, first.Status)
	callsAfterFirst := f.artifact.PublisherCalls()
	assert.Equal(t, 2, callsAfterFirst)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sync.StatusUnchanged, second.Status)
	assert.Empty(t, second.Divergences)
	assert.Equal(t, callsAfterFirst, f.artifact.PublisherCalls(), "no publisher calls on a no-op run")
}

func TestPipelineNoOpNeverCallsPublisher(t *testing.T) {
	f := newFixture(t)
	f.store.Put("moves", moveRecord(1, "Pound"))

	result, err := sync.NewPipeline(dataset.Moves(), f.store, f.artifact, f.artifact).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sync.StatusUnchanged, result.Status)
	assert.Zero(t, f.artifact.PublisherCalls())
	assert.Nil(t, result.Commit)
}

func TestPipelineDryRun(t *testing.T) {
	f := newFixture(t)

	result, err := sync.NewPipeline(dataset.Moves(), f.store, f.artifact, f.artifact, sync.WithDryRun(true)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sync.StatusDryRun, result.Status)
	assert.Equal(t, "Auto: 1 updates syncd\nMove 2", result.Message)
	assert.Zero(t, f.artifact.PublisherCalls())
}

func TestPipelineFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.artifact.FailFetchWith(errors.NewAPIError("github", 500, "boom"))

	result, err := sync.NewPipeline(dataset.Moves(), f.store, f.artifact, f.artifact).Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.IsFetchError(err))
	var fe *errors.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "moves", fe.Dataset)
	assert.Equal(t, sync.SourceArtifact, fe.Source)
	assert.Equal(t, sync.StatusErrored, result.Status)
	assert.Zero(t, f.artifact.PublisherCalls())
}

func TestPipelineRepairsIrregularPublishedNames(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
	}{
		{name: "multi-key entry", artifact: `[{"id":1,"names":[{"en":"Pound","de":"Pfund"}]}]`},
		{name: "undeclared code", artifact: `[{"id":1,"names":[{"en":"Pound"},{"de":"Pfund"},{"ko":"stale"}]}]`},
		{name: "repeated code", artifact: `[{"id":1,"names":[{"en":"Pound"},{"en":"Other"},{"de":"Pfund"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			store.Put("moves", dataset.Record{"move_id": 1, "en": "Pound", "de": "Pfund"})
			artifact := memory.NewArtifact()
			artifact.Put("src/lib/data/moves.json", []byte(tt.artifact))
			p := sync.NewPipeline(dataset.Moves(), store, artifact, artifact)

			comparison, err := p.Compare(context.Background())
			require.NoError(t, err)
			require.Len(t, comparison.Divergences, 1)
			assert.Equal(t, differ.ReasonNames, comparison.Divergences[0].Reason)

			result, err := p.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, sync.StatusPublished, result.Status)

			again, err := p.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, sync.StatusUnchanged, again.Status)
		})
	}
}

func TestPipelineMalformedRecord(t *testing.T) {
	f := newFixture(t)
	f.store.Put("moves", moveRecord(1, "Pound"), dataset.Record{"move_id": 2.5, "en": "Karate Chop"})

	result, err := sync.NewPipeline(dataset.Moves(), f.store, f.artifact, f.artifact).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsMalformedRecord(err))
	assert.Equal(t, sync.StatusErrored, result.Status)
}

// racingPublisher simulates an external write between Token and Replace.
type racingPublisher struct {
	*memory.Artifact
}

func (r racingPublisher) Token(ctx context.Context, ref sources.Ref) (string, error) {
	token, err := r.Artifact.Token(ctx, ref)
	r.Artifact.Put(ref.Path, []byte(`[]`))
	return token, err
}

// branchRecorder notes the branch of every artifact call.
type branchRecorder struct {
	*memory.Artifact
	mu       gosync.Mutex
	branches []string
}

func (b *branchRecorder) record(op, branch string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.branches = append(b.branches, op+"@"+branch)
}

func (b *branchRecorder) FetchArtifact(ctx context.Context, ref sources.Ref) ([]dataset.Record, error) {
	b.record("fetch", ref.Branch)
	return b.Artifact.FetchArtifact(ctx, ref)
}

func (b *branchRecorder) Token(ctx context.Context, ref sources.Ref) (string, error) {
	b.record("token", ref.Branch)
	return b.Artifact.Token(ctx, ref)
}

func (b *branchRecorder) Replace(ctx context.Context, req sources.ReplaceRequest) (*sources.Commit, error) {
	b.record("replace", req.Branch)
	return b.Artifact.Replace(ctx, req)
}

func TestPipelineReadsAndWritesTheSameBranch(t *testing.T) {
	f := newFixture(t)
	rec := &branchRecorder{Artifact: f.artifact}

	result, err := sync.NewPipeline(dataset.Moves(), f.store, rec, rec, sync.WithBranch("release")).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sync.StatusPublished, result.Status)
	assert.Equal(t, []string{"fetch@release", "token@release", "replace@release"}, rec.branches)

	rec.branches = nil
	_, err = sync.NewPipeline(dataset.Moves(), f.store, rec, rec).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch@"}, rec.branches, "empty branch defers to the backend")
}

func TestPipelineStaleToken(t *testing.T) {
	f := newFixture(t)

	result, err := sync.NewPipeline(dataset.Moves(), f.store, f.artifact, racingPublisher{f.artifact}).Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.IsPreconditionFailed(err))
	assert.Equal(t, sync.StatusErrored, result.Status)
	assert.Empty(t, f.artifact.Commits())
}

func TestPipelineWithoutPublisher(t *testing.T) {
	f := newFixture(t)

	_, err := sync.NewPipeline(dataset.Moves(), f.store, f.artifact, nil).Run(context.Background())
	assert.True(t, errors.IsConfigError(err))
}

func TestCompareMetadata(t *testing.T) {
	f := newFixture(t)
	f.store.Put("pokemon_names", pokemonRecord(1, 1, "Bulbasaur"))

	entity, err := dataset.Normalize(pokemonRecord(1, 2, "Bulbasaur"), dataset.Pokemon(), dataset.StoreLayout)
	require.NoError(t, err)
	require.NoError(t, f.artifact.PutEntities("src/lib/data/pokemonNames.json", []dataset.Entity{entity}))

	plain, err := sync.NewPipeline(dataset.Pokemon(), f.store, f.artifact, nil).Compare(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plain.Divergences)

	withMeta, err := sync.NewPipeline(dataset.Pokemon(), f.store, f.artifact, nil, sync.WithCompareMetadata(true)).Compare(context.Background())
	require.NoError(t, err)
	assert.Len(t, withMeta.Divergences, 1)
	assert.Equal(t, 1, withMeta.Positions())
}

func TestRunnerIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	schemas := []*dataset.Schema{
		{
			Name: "abilities", Collection: "abilities", SortKey: "ability_id", IDField: "ability_id",
			Locales: dataset.DefaultLocales(), ArtifactPath: "src/lib/data/abilities.json", Label: "Ability",
		},
		dataset.Moves(),
	}

	report, err := sync.NewRunner(f.backends(), schemas).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, sync.StatusErrored, report.Results[0].Status)
	assert.True(t, errors.IsFetchError(report.Results[0].Err))
	assert.Equal(t, sync.StatusPublished, report.Results[1].Status)
	assert.True(t, report.HasErrors())
	assert.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "abilities")
	assert.NotEmpty(t, report.RunID)
}

func TestRunnerDatasetSelection(t *testing.T) {
	f := newFixture(t)

	runner := sync.NewRunner(f.backends(), dataset.Builtin(), sync.WithDatasets("moves"), sync.WithDryRun(true))
	require.Len(t, runner.Pipelines(), 1)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "moves", report.Results[0].Dataset)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Count(sync.StatusDryRun))
	assert.NoError(t, report.Err())
}

func TestRunnerRejectsInvalidOptions(t *testing.T) {
	f := newFixture(t)

	_, err := sync.NewRunner(f.backends(), dataset.Builtin(), sync.WithDatasets("items")).Run(context.Background())
	assert.True(t, errors.IsValidationError(err))

	_, err = sync.NewRunner(f.backends(), dataset.Builtin(), sync.WithTimeout(-time.Second)).Run(context.Background())
	assert.True(t, errors.IsValidationError(err))
}

func TestRunnerLogsRunID(t *testing.T) {
	f := newFixture(t)
	rec := logging.NewRecorder(t)
	ctx := logging.WithLogger(context.Background(), rec.Logger)

	report, err := sync.NewRunner(f.backends(), dataset.Builtin()).Run(ctx)
	require.NoError(t, err)

	published := rec.AssertLogged("Published artifact")
	assert.Equal(t, "pokemon", published["dataset"])

	entries := rec.Entries()
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		assert.Equal(t, report.RunID, entry["run_id"], entry.Message())
	}
}

func TestRunnerCanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := sync.NewRunner(f.backends(), dataset.Builtin()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(sync.StatusErrored))
	assert.Zero(t, f.artifact.PublisherCalls())
	for _, r := range report.Results {
		assert.True(t, errors.IsCanceled(r.Err), r.Dataset)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

var _ sources.Artifact = (*memory.Artifact)(nil)
