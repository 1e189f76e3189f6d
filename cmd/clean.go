package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// cleanCmd represents the clean command.
var cleanCmd = newCleanCmd()

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove all generated build state",
		Long: `Delete the build-state root for every target and variant, including ELF
images, derived artifacts and the build manifest. Succeeds even if no build
has ever run.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflowFactory(cmd).Clean(context.Background())
		},
	}
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
