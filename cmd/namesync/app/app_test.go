package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pokecompanion/namesync"
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/sources/memory"
)

func newTestApp(t *testing.T, opts ...Option) (*App, *bytes.Buffer) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	logger := zerolog.Nop()
	base := []Option{WithStdout(&out), WithLogger(&logger)}

	app, err := New("1.0.0", "abc123", "2024-01-01", "test", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app, &out
}

func memoryClient(t *testing.T) (namesync.Client, *memory.Artifact) {
	t.Helper()
	store := memory.NewStore()
	store.Put("moves", dataset.Record{"move_id": 1, "en": "Pound"})
	store.Put("pokemon_names", dataset.Record{"national_dex": 1, "en": "Bulbasaur"})

	artifact := memory.NewArtifact()
	artifact.Put(dataset.Moves().ArtifactPath, []byte(`[{"id":1,"names":[{"en":"Pound"}]}]`))
	artifact.Put(dataset.Pokemon().ArtifactPath, []byte(`[]`))

	client, err := namesync.New(namesync.WithStore(store), namesync.WithArtifact(artifact))
	if err != nil {
		t.Fatalf("namesync.New() failed: %v", err)
	}
	return client, artifact
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, _ := newTestApp(t)

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_Client_Singleton verifies concurrent Client() calls share one instance.
func TestApp_Client_Singleton(t *testing.T) {
	app, _ := newTestApp(t)
	app.config = validConfig()

	const goroutines = 50
	var wg sync.WaitGroup
	clients := make([]namesync.Client, goroutines)
	errs := make([]error, goroutines)

	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clients[i], errs[i] = app.Client()
		}()
	}
	wg.Wait()

	for i := range goroutines {
		if errs[i] != nil {
			t.Fatalf("Client() failed: %v", errs[i])
		}
		if clients[i] != clients[0] {
			t.Fatal("Client() returned different instances, expected singleton")
		}
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

// TestApp_Client_MissingConfig verifies missing settings surface as a ConfigError.
func TestApp_Client_MissingConfig(t *testing.T) {
	app, _ := newTestApp(t)
	app.config = &Config{StoreBackend: StorePocketBase, ArtifactBackend: ArtifactGitHub, GitHubBranch: "main"}

	_, err := app.Client()
	if !errors.IsConfigError(err) {
		t.Fatalf("Client() = %v, want ConfigError", err)
	}
}

// TestApp_Execute_Version verifies the version command.
func TestApp_Execute_Version(t *testing.T) {
	app, out := newTestApp(t)

	if err := app.Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !strings.Contains(out.String(), "namesync version 1.0.0") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

// TestApp_Execute_Datasets verifies datasets lists the built-in schemas without backends.
func TestApp_Execute_Datasets(t *testing.T) {
	app, out := newTestApp(t)

	if err := app.Execute(context.Background(), []string{"datasets", "-o", "json"}); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var rows []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(rows) != 2 || rows[0].Name != dataset.PokemonName || rows[1].Name != dataset.MovesName {
		t.Errorf("unexpected datasets: %+v", rows)
	}
}

// TestApp_Execute_RunDryRun verifies run wires flags through to the client.
func TestApp_Execute_RunDryRun(t *testing.T) {
	client, artifact := memoryClient(t)
	app, out := newTestApp(t, WithClient(client))

	if err := app.Execute(context.Background(), []string{"run", "--dry-run", "-o", "json"}); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if artifact.PublisherCalls() != 0 {
		t.Errorf("dry run called the publisher %d times", artifact.PublisherCalls())
	}
	if !strings.Contains(out.String(), `"status": "dry-run"`) || !strings.Contains(out.String(), `"status": "unchanged"`) {
		t.Errorf("unexpected report: %s", out.String())
	}
}

// TestApp_Execute_Diff verifies diff prints divergences.
func TestApp_Execute_Diff(t *testing.T) {
	client, _ := memoryClient(t)
	app, out := newTestApp(t, WithClient(client))

	err := app.Execute(context.Background(), []string{"diff", "pokemon", "--exit-code", "-o", "yaml"})
	if !errors.Is(err, errors.ErrDiverged) {
		t.Fatalf("Execute() = %v, want ErrDiverged", err)
	}
	if !strings.Contains(out.String(), "reason: missing_published") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

// TestApp_Execute_InvalidFormat verifies unknown formats are rejected before running.
func TestApp_Execute_InvalidFormat(t *testing.T) {
	app, _ := newTestApp(t)

	if err := app.Execute(context.Background(), []string{"datasets", "-o", "xml"}); err == nil {
		t.Error("Execute() with invalid format should fail")
	}
}
