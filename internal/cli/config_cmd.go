package cli

import (
	"github.com/spf13/cobra"

	"github.com/nmslite/check-hyperv/internal/globals"
)

func (a *app) configCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the check configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "example",
		Short: "Print an annotated example configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return globals.DumpExampleConfig(cmd.OutOrStdout())
		},
	})

	return configCmd
}
