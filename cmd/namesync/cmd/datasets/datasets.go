// Package datasets provides the datasets command implementation.
package datasets

import (
	"github.com/spf13/cobra"

	"github.com/pokecompanion/namesync/cmd/application"
	"github.com/pokecompanion/namesync/internal/cmd/output"
)

// NewCommand creates the datasets command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ls"},
		GroupID: "management",
		Short:   "List configured datasets",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			schemas, err := app.Schemas()
			if err != nil {
				return err
			}
			return output.Print(app.Stdout(), app.OutputFormat(), output.NewDatasetRows(schemas))
		},
	}
}
