package app

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pokecompanion/namesync/pkg/constants"
	"github.com/pokecompanion/namesync/pkg/errors"
)

// Backend names.
const (
	StorePocketBase = "pocketbase"
	StoreSQLite     = "sqlite"

	ArtifactGitHub = "github"
	ArtifactS3     = "s3"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files. The env tag names the variable
// each field is read from.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Authoritative store
	StoreBackend  string `env:"STORE_BACKEND" validate:"required,oneof=pocketbase sqlite"`
	PocketBaseURL string `env:"POCKETBASE_URL" validate:"required_if=StoreBackend pocketbase,omitempty,url"`
	AdminEmail    string `env:"ADMIN_EMAIL" validate:"required_if=StoreBackend pocketbase"`
	AdminPassword string `env:"ADMIN_PASSWORD" validate:"required_if=StoreBackend pocketbase"`
	SQLitePath    string `env:"SQLITE_PATH" validate:"required_if=StoreBackend sqlite"`

	// Published artifact
	ArtifactBackend string  `env:"ARTIFACT_BACKEND" validate:"required,oneof=github s3"`
	GitHubToken     string  `env:"GITHUB_PAT" validate:"required_if=ArtifactBackend github"`
	GitHubOwner     string  `env:"GITHUB_OWNER" validate:"required_if=ArtifactBackend github"`
	GitHubRepo      string  `env:"GITHUB_REPO" validate:"required_if=ArtifactBackend github"`
	GitHubBranch    string  `env:"GITHUB_BRANCH" validate:"required"`
	GitHubAPIURL    string  `env:"GITHUB_API_URL" validate:"omitempty,url"`
	GitHubRawURL    string  `env:"GITHUB_RAW_URL" validate:"omitempty,url"`
	PublishRPS      float64 `env:"PUBLISH_RPS" validate:"gte=0"`

	S3Endpoint  string `env:"S3_ENDPOINT" validate:"required_if=ArtifactBackend s3"`
	S3Bucket    string `env:"S3_BUCKET" validate:"required_if=ArtifactBackend s3"`
	S3AccessKey string `env:"S3_ACCESS_KEY" validate:"required_if=ArtifactBackend s3"`
	S3SecretKey string `env:"S3_SECRET_KEY" validate:"required_if=ArtifactBackend s3"`
	S3Region    string `env:"S3_REGION"`
	S3UseSSL    bool   `env:"S3_USE_SSL"`
	S3Prefix    string `env:"S3_PREFIX"`

	// Dataset schemas
	DatasetsFile string `env:"DATASETS_FILE"`

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables
// 3. .env files
// 4. Config file (configFile, or .namesync.yaml in home or cwd)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv("NAMESYNC_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapParse("yaml", configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".namesync")

		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),

		StoreBackend:  strings.ToLower(v.GetString("store_backend")),
		PocketBaseURL: v.GetString("pocketbase_url"),
		AdminEmail:    v.GetString("admin_email"),
		AdminPassword: v.GetString("admin_password"),
		SQLitePath:    v.GetString("sqlite_path"),

		ArtifactBackend: strings.ToLower(v.GetString("artifact_backend")),
		GitHubToken:     v.GetString("github_pat"),
		GitHubOwner:     v.GetString("github_owner"),
		GitHubRepo:      v.GetString("github_repo"),
		GitHubBranch:    v.GetString("github_branch"),
		GitHubAPIURL:    v.GetString("github_api_url"),
		GitHubRawURL:    v.GetString("github_raw_url"),
		PublishRPS:      v.GetFloat64("publish_rps"),

		S3Endpoint:  v.GetString("s3_endpoint"),
		S3Bucket:    v.GetString("s3_bucket"),
		S3AccessKey: v.GetString("s3_access_key"),
		S3SecretKey: v.GetString("s3_secret_key"),
		S3Region:    v.GetString("s3_region"),
		S3UseSSL:    v.GetBool("s3_use_ssl"),
		S3Prefix:    v.GetString("s3_prefix"),

		DatasetsFile: v.GetString("datasets_file"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store_backend", StorePocketBase)
	v.SetDefault("artifact_backend", ArtifactGitHub)
	v.SetDefault("github_owner", constants.DefaultOwner)
	v.SetDefault("github_repo", constants.DefaultRepo)
	v.SetDefault("github_branch", constants.DefaultBranch)
	v.SetDefault("github_api_url", constants.GitHubAPIURL)
	v.SetDefault("github_raw_url", constants.GitHubRawURL)
	v.SetDefault("publish_rps", constants.DefaultPublishRPS)
	v.SetDefault("s3_use_ssl", true)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the backend settings. Every absent required key is
// reported in a single ConfigError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.NewConfigError("config", "validation failed", err)
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		key := envKey(fe.StructField())
		switch fe.Tag() {
		case "required", "required_if":
			missing = append(missing, key)
		default:
			invalid = append(invalid, fmt.Sprintf("%s (%s)", key, describe(fe)))
		}
	}

	cfgErr := &errors.ConfigError{Component: "config", Missing: missing}
	switch {
	case len(missing) > 0 && len(invalid) > 0:
		cfgErr.Message = "required settings are missing; invalid: " + strings.Join(invalid, ", ")
	case len(missing) > 0:
		cfgErr.Message = "required settings are missing"
	default:
		cfgErr.Message = "invalid settings: " + strings.Join(invalid, ", ")
	}
	return cfgErr
}

// envKey returns the environment variable name of a Config field.
func envKey(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	if key := f.Tag.Get("env"); key != "" {
		return key
	}
	return field
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a URL"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return fe.Tag()
	}
}

// loadEnvFiles loads environment variables from .env files.
// godotenv never overrides a variable that is already set, so .env.local
// goes first to take precedence over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
