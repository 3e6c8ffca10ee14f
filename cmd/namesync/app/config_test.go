package app

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pokecompanion/namesync/pkg/constants"
	"github.com/pokecompanion/namesync/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		StoreBackend:    StorePocketBase,
		PocketBaseURL:   "https://pb.example.test",
		AdminEmail:      "admin@example.test",
		AdminPassword:   "secret",
		ArtifactBackend: ArtifactGitHub,
		GitHubToken:     "ghp_test",
		GitHubOwner:     constants.DefaultOwner,
		GitHubRepo:      constants.DefaultRepo,
		GitHubBranch:    constants.DefaultBranch,
		PublishRPS:      1,
	}
}

// TestLoadConfig_Defaults verifies defaults apply when nothing is set.
func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.StoreBackend != StorePocketBase {
		t.Errorf("StoreBackend = %q, want %q", config.StoreBackend, StorePocketBase)
	}
	if config.ArtifactBackend != ArtifactGitHub {
		t.Errorf("ArtifactBackend = %q, want %q", config.ArtifactBackend, ArtifactGitHub)
	}
	if config.GitHubBranch != constants.DefaultBranch {
		t.Errorf("GitHubBranch = %q, want %q", config.GitHubBranch, constants.DefaultBranch)
	}
	if config.PublishRPS != constants.DefaultPublishRPS {
		t.Errorf("PublishRPS = %v, want %v", config.PublishRPS, constants.DefaultPublishRPS)
	}
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
}

// TestLoadConfig_Environment verifies environment variables are read.
func TestLoadConfig_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POCKETBASE_URL", "https://pb.example.test")
	t.Setenv("GITHUB_PAT", "ghp_env")
	t.Setenv("GITHUB_BRANCH", "staging")
	t.Setenv("STORE_BACKEND", "SQLite")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.PocketBaseURL != "https://pb.example.test" {
		t.Errorf("PocketBaseURL = %q", config.PocketBaseURL)
	}
	if config.GitHubToken != "ghp_env" {
		t.Errorf("GitHubToken = %q", config.GitHubToken)
	}
	if config.GitHubBranch != "staging" {
		t.Errorf("GitHubBranch = %q", config.GitHubBranch)
	}
	if config.StoreBackend != StoreSQLite {
		t.Errorf("StoreBackend = %q, want lower-cased %q", config.StoreBackend, StoreSQLite)
	}
}

// TestLoadConfig_DotEnv verifies .env files are loaded without overriding the environment.
func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// t.Setenv restores the variables godotenv sets during the test
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("GITHUB_REPO", "from-env")
	os.Unsetenv("ADMIN_EMAIL")

	env := "ADMIN_EMAIL=dotenv@example.test\nGITHUB_REPO=from-dotenv\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.AdminEmail != "dotenv@example.test" {
		t.Errorf("AdminEmail = %q, want value from .env", config.AdminEmail)
	}
	if config.GitHubRepo != "from-env" {
		t.Errorf("GitHubRepo = %q, environment should win over .env", config.GitHubRepo)
	}
}

// TestLoadConfig_File verifies an explicit config file is read.
func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "namesync.yaml")
	body := "artifact_backend: s3\ns3_bucket: artifacts\ndatasets_file: datasets.yaml\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", config.ConfigFile, path)
	}
	if config.ArtifactBackend != ArtifactS3 || config.S3Bucket != "artifacts" {
		t.Errorf("artifact settings not read: %q %q", config.ArtifactBackend, config.S3Bucket)
	}
	if config.DatasetsFile != "datasets.yaml" {
		t.Errorf("DatasetsFile = %q", config.DatasetsFile)
	}
}

// TestLoadConfig_MissingFile verifies an explicit but absent config file fails.
func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() with absent file should fail")
	}
}

// TestConfig_UpdateFromFlags verifies flag values override loaded values.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", LogLevel: "warn"}

	config.UpdateFromFlags(true, false, true, "", "")
	if !config.Verbose || !config.NoColor {
		t.Error("boolean flags not applied")
	}
	if config.Format != "yaml" || config.LogLevel != "warn" {
		t.Error("empty flag values should not override config")
	}

	config.UpdateFromFlags(false, true, false, "json", "debug")
	if config.Format != "json" || config.LogLevel != "debug" {
		t.Errorf("Format = %q, LogLevel = %q", config.Format, config.LogLevel)
	}
}

// TestConfig_Validate verifies a complete configuration passes.
func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	sqlite := validConfig()
	sqlite.StoreBackend = StoreSQLite
	sqlite.PocketBaseURL, sqlite.AdminEmail, sqlite.AdminPassword = "", "", ""
	sqlite.SQLitePath = "names.db"
	if err := sqlite.Validate(); err != nil {
		t.Fatalf("Validate() sqlite failed: %v", err)
	}
}

// TestConfig_ValidateMissing verifies every absent key is listed at once.
func TestConfig_ValidateMissing(t *testing.T) {
	config := validConfig()
	config.PocketBaseURL = ""
	config.AdminPassword = ""
	config.GitHubToken = ""

	err := config.Validate()
	if !errors.IsConfigError(err) {
		t.Fatalf("Validate() = %v, want ConfigError", err)
	}

	var cfgErr *errors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("error is not a *ConfigError")
	}
	for _, key := range []string{"POCKETBASE_URL", "ADMIN_PASSWORD", "GITHUB_PAT"} {
		if !slices.Contains(cfgErr.Missing, key) {
			t.Errorf("Missing = %v, want %s", cfgErr.Missing, key)
		}
	}
	if len(cfgErr.Missing) != 3 {
		t.Errorf("Missing = %v, want exactly 3 keys", cfgErr.Missing)
	}
}

// TestConfig_ValidateS3 verifies the s3 backend requires its own keys only.
func TestConfig_ValidateS3(t *testing.T) {
	config := validConfig()
	config.ArtifactBackend = ArtifactS3
	config.GitHubToken = ""

	err := config.Validate()
	var cfgErr *errors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() = %v, want ConfigError", err)
	}
	want := []string{"S3_ENDPOINT", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY"}
	if !slices.Equal(cfgErr.Missing, want) {
		t.Errorf("Missing = %v, want %v", cfgErr.Missing, want)
	}
}

// TestConfig_ValidateInvalid verifies malformed values are reported.
func TestConfig_ValidateInvalid(t *testing.T) {
	config := validConfig()
	config.StoreBackend = "mongo"
	config.PocketBaseURL = "not a url"

	err := config.Validate()
	if !errors.IsConfigError(err) {
		t.Fatalf("Validate() = %v, want ConfigError", err)
	}
}
