package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entry points and their current artifacts",
		Long: `Discover the entry points in the source directory and show which of the
ELF image, binary image and disassembly listing currently exist for each in
the build output directory. The set is recomputed on every call; nothing is
cached.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflowFactory(cmd).List(context.Background())
		},
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
