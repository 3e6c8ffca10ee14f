package github

import (
	"context"
	"crypto/sha1" //nolint:gosec // mirrors git blob addressing in the fake
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sources"
)

// fakeGitHub serves one repository's files over the raw and contents APIs.
// files holds the main branch; other branches live in branches.
type fakeGitHub struct {
	mu       sync.Mutex
	files    map[string][]byte
	branches map[string]map[string][]byte
	commits  []putRequest
	auth     []string
}

func (f *fakeGitHub) branch(name string) map[string][]byte {
	if name == "main" {
		return f.files
	}
	if f.branches == nil {
		f.branches = make(map[string]map[string][]byte)
	}
	if f.branches[name] == nil {
		f.branches[name] = make(map[string][]byte)
	}
	return f.branches[name]
}

func blobSHA(content []byte) string {
	sum := sha1.Sum(content) //nolint:gosec // test fake
	return hex.EncodeToString(sum[:])
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /raw/helblingjoel/pokecompanion/{branch}/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		content, ok := f.branch(r.PathValue("branch"))[r.PathValue("path")]
		if !ok {
			http.Error(w, "404: Not Found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(content)
	})
	mux.HandleFunc("GET /repos/helblingjoel/pokecompanion/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		content, ok := f.branch(r.URL.Query().Get("ref"))[r.PathValue("path")]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"type": "file", "sha": blobSHA(content)})
	})
	mux.HandleFunc("PUT /repos/helblingjoel/pokecompanion/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))

		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"message":"Problems parsing JSON"}`, http.StatusBadRequest)
			return
		}
		path := r.PathValue("path")
		files := f.branch(req.Branch)
		current, exists := files[path]
		switch {
		case exists && req.SHA == "":
			http.Error(w, `{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`, http.StatusUnprocessableEntity)
			return
		case exists && req.SHA != blobSHA(current):
			http.Error(w, `{"message":"`+path+` does not match `+req.SHA+`"}`, http.StatusConflict)
			return
		}

		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			http.Error(w, `{"message":"content is not valid Base64"}`, http.StatusUnprocessableEntity)
			return
		}
		files[path] = content
		f.commits = append(f.commits, req)

		resp := putResponse{}
		resp.Content.SHA = blobSHA(content)
		resp.Commit.SHA = "commit-" + resp.Content.SHA[:7]
		resp.Commit.HTMLURL = "https://github.com/helblingjoel/pokecompanion/commit/" + resp.Commit.SHA
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeGitHub) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	return New(Config{
		Token:  "pat-123",
		APIURL: server.URL,
		RawURL: server.URL + "/raw",
	})
}

const movesPath = "src/lib/data/moves.json"

func TestFetchArtifact(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{
		movesPath: []byte(`[{"id":1,"names":[{"en":"Pound"}]},{"id":2,"names":[{"en":"Karate Chop"}]}]`),
	}}
	c := newTestClient(t, fake)

	records, err := c.FetchArtifact(context.Background(), sources.Ref{Path: movesPath})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, json.Number("2"), records[1]["id"])

	_, err = c.FetchArtifact(context.Background(), sources.Ref{Path: "src/lib/data/missing.json"})
	assert.True(t, errors.IsNotFound(err))
}

func TestTokenAndReplace(t *testing.T) {
	original := []byte(`[]`)
	fake := &fakeGitHub{files: map[string][]byte{movesPath: original}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	token, err := c.Token(ctx, sources.Ref{Path: movesPath})
	require.NoError(t, err)
	assert.Equal(t, blobSHA(original), token)

	updated := []byte(`[{"id":1,"names":[{"en":"Pound"}]}]`)
	commit, err := c.Replace(ctx, sources.ReplaceRequest{
		Path:    movesPath,
		Content: updated,
		Token:   token,
		Message: "Auto: 1 updates syncd\nMove 1",
	})
	require.NoError(t, err)

	assert.Equal(t, blobSHA(updated), commit.Token)
	assert.NotEmpty(t, commit.SHA)
	assert.Contains(t, commit.URL, commit.SHA)

	require.Len(t, fake.commits, 1)
	assert.Equal(t, "main", fake.commits[0].Branch)
	assert.Equal(t, "Auto: 1 updates syncd\nMove 1", fake.commits[0].Message)
	assert.Equal(t, updated, fake.files[movesPath])
	for _, h := range fake.auth {
		assert.Equal(t, "Bearer pat-123", h)
	}
}

func TestBranchIsUsedForFetchTokenAndReplace(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{movesPath: []byte(`[{"id":1,"names":[{"en":"Pound"}]}]`)}}
	release := []byte(`[]`)
	fake.branch("release")[movesPath] = release
	c := newTestClient(t, fake)
	ctx := context.Background()
	ref := sources.Ref{Path: movesPath, Branch: "release"}

	records, err := c.FetchArtifact(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, records)

	token, err := c.Token(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, blobSHA(release), token)

	updated := []byte(`[{"id":1,"names":[{"en":"Pound"},{"de":"Pfund"}]}]`)
	_, err = c.Replace(ctx, sources.ReplaceRequest{Path: ref.Path, Branch: ref.Branch, Content: updated, Token: token, Message: "m"})
	require.NoError(t, err)

	require.Len(t, fake.commits, 1)
	assert.Equal(t, "release", fake.commits[0].Branch)
	assert.Equal(t, blobSHA(release), fake.commits[0].SHA)
	assert.Equal(t, updated, fake.branch("release")[movesPath])

	// A main-branch token is stale for release.
	mainToken, err := c.Token(ctx, sources.Ref{Path: movesPath})
	require.NoError(t, err)
	_, err = c.Replace(ctx, sources.ReplaceRequest{Path: movesPath, Branch: "release", Content: []byte(`[]`), Token: mainToken, Message: "m"})
	assert.True(t, errors.IsPreconditionFailed(err))
}

func TestReplaceStaleToken(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{movesPath: []byte(`[]`)}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	token, err := c.Token(ctx, sources.Ref{Path: movesPath})
	require.NoError(t, err)

	// Someone else commits in between.
	fake.mu.Lock()
	fake.files[movesPath] = []byte(`[{"id":9}]`)
	fake.mu.Unlock()

	_, err = c.Replace(ctx, sources.ReplaceRequest{Path: movesPath, Content: []byte(`[]`), Token: token, Message: "m"})
	require.Error(t, err)
	assert.True(t, errors.IsPreconditionFailed(err))

	var pre *errors.PublishPreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, movesPath, pre.Path)
	assert.Equal(t, token, pre.Token)
	assert.Empty(t, fake.commits)
}

func TestReplaceMissingToken(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{movesPath: []byte(`[]`)}}
	c := newTestClient(t, fake)

	_, err := c.Replace(context.Background(), sources.ReplaceRequest{Path: movesPath, Content: []byte(`[1]`), Message: "m"})
	assert.True(t, errors.IsPreconditionFailed(err))
}

func TestTokenForNewFile(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	token, err := c.Token(ctx, sources.Ref{Path: "src/lib/data/abilities.json"})
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = c.Replace(ctx, sources.ReplaceRequest{Path: "src/lib/data/abilities.json", Content: []byte(`[]`), Token: token, Message: "m"})
	require.NoError(t, err)
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "src/lib/data/moves.json", escapePath("/src/lib/data/moves.json"))
	assert.Equal(t, "a%20b/c%3Fd.json", escapePath("a b/c?d.json"))
}
