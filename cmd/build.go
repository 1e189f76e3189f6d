package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rvmk.dev/pkg/rvmk/internal/domain"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// runParallelFlag caps concurrent artifact-derivation workers.
var runParallelFlag int

// goalSpec is one named build goal. The goal table is closed: every
// variant × artifact-kind combination the pipeline supports is a row here.
type goalSpec struct {
	use     string
	aliases []string
	short   string
	variant m.Variant
	derive  bool
}

var buildGoals = []goalSpec{
	{
		use:     "elf",
		short:   "Compile ELF images for the qemu variant",
		variant: m.VariantDefault,
	},
	{
		use:     "elf_lrv",
		short:   "Compile ELF images for the LRV board variant",
		variant: m.VariantBoard,
	},
	{
		use:     "elf_lrv_trace",
		short:   "Compile ELF images for the LRV board variant with tracing",
		variant: m.VariantBoardTraced,
	},
	{
		use:     "binary",
		aliases: []string{"build"},
		short:   "Compile and derive binary images and disassembly (qemu variant)",
		variant: m.VariantDefault,
		derive:  true,
	},
	{
		use:     "binary_lrv",
		aliases: []string{"build_lrv"},
		short:   "Compile and derive binary images and disassembly (LRV board variant)",
		variant: m.VariantBoard,
		derive:  true,
	},
	{
		use:     "binary_lrv_trace",
		aliases: []string{"build_lrv_trace"},
		short:   "Compile and derive binary images (LRV board variant with tracing)",
		variant: m.VariantBoardTraced,
		derive:  true,
	},
}

func newGoalCmd(goal goalSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:     goal.use,
		Aliases: goal.aliases,
		Short:   goal.short,
		Long:    goalLongDescription(goal),
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflowFactory(cmd).Build(context.Background(), domain.BuildArgs{
				Variant: goal.variant,
				Derive:  goal.derive,
				Threads: goalThreads(cmd),
			})
		},
	}

	configureGoalFlags(cmd)

	return cmd
}

func goalLongDescription(goal goalSpec) string {
	desc := fmt.Sprintf("%s.\n\nFeature flags passed to the compiler: %v.",
		goal.short, goal.variant.Flags())

	if goal.derive && goal.variant.Disassemble() {
		desc += "\nEach entry point yields <name>, <name>.bin and <name>.asm."
	} else if goal.derive {
		desc += "\nEach entry point yields <name> and <name>.bin (no listing for the traced variant)."
	}

	return desc
}

func configureGoalFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, runParallelFlagName, "p",
		defaultRunParallel, "number of parallel workers for artifact derivation")
}

// goalThreads resolves the worker cap: an explicit flag wins over the
// config/env value. The same flag is registered on every goal command, so it
// is read per command instead of bound to the shared viper key.
func goalThreads(cmd *cobra.Command) int {
	if cmd.Flags().Changed(runParallelFlagName) {
		return runParallelFlag
	}

	return viper.GetInt(runParallelConfigKey)
}

func init() {
	for _, goal := range buildGoals {
		rootCmd.AddCommand(newGoalCmd(goal))
	}
}
