// Package constants provides shared constants used throughout the namesync codebase.
// This includes timeouts, limits, file permissions, and the well-known
// locations of the published artifacts.
package constants

import "time"

// ShutdownTimeout bounds graceful shutdown after the command returns.
// Pipelines add no timeouts of their own.
const ShutdownTimeout = 5 * time.Second

// FilePermissions is the permission for created log files (rw-r--r--)
const FilePermissions = 0644

// Limit constants
const (
	// StorePageSize is the page size used when listing store records
	StorePageSize = 500

	// MaxStorePages bounds paging through a store collection
	MaxStorePages = 10000

	// MaxArtifactBytes is the largest artifact body accepted from a fetch (32 MiB)
	MaxArtifactBytes = 32 << 20

	// DefaultPublishRPS is the default pace of publisher API calls per second
	DefaultPublishRPS = 1.0

	// DefaultPublishBurst is the token bucket burst for publisher calls
	DefaultPublishBurst = 2
)

// Publishing defaults
const (
	// DefaultOwner is the default owner of the artifact repository
	DefaultOwner = "helblingjoel"

	// DefaultRepo is the default artifact repository
	DefaultRepo = "pokecompanion"

	// DefaultBranch is the branch artifacts are read from and committed to
	DefaultBranch = "main"

	// DefaultDataFolder is the folder holding the published artifacts
	DefaultDataFolder = "src/lib/data"

	// GitHubAPIURL is the base URL of the GitHub REST API
	GitHubAPIURL = "https://api.github.com"

	// GitHubRawURL is the base URL for unauthenticated raw file reads
	GitHubRawURL = "https://raw.githubusercontent.com"
)

// Format constants
const (
	// TimeFormatISO8601 is the ISO 8601 time format
	TimeFormatISO8601 = time.RFC3339
)
