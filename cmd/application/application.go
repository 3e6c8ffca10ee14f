// Package application provides the application interface for namesync commands.
//
// The Application interface is the contract between the CLI app and the
// command implementations. Commands accept it instead of the concrete App so
// they can be tested with a Mock.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            client, err := app.Client()
//	            if err != nil {
//	                return err
//	            }
//	            report, err := client.Run(cmd.Context())
//	            // ... print report
//	        },
//	    }
//	}
package application

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/pokecompanion/namesync"
	"github.com/pokecompanion/namesync/pkg/dataset"
)

// Application provides what commands need from the running app.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the namesync client, building its backends on first use.
	Client() (namesync.Client, error)

	// Schemas returns the configured dataset schemas without building backends.
	Schemas() ([]*dataset.Schema, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Stdout is where command results are written.
	Stdout() io.Writer

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
