// Package cmd provides the root command and CLI setup for rvmk.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rvmk.dev/pkg/rvmk/internal/adapter"
	"rvmk.dev/pkg/rvmk/internal/controller"
	"rvmk.dev/pkg/rvmk/internal/domain"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// sourceDirFlag is a root-level flag selecting the entry-point directory.
var sourceDirFlag string

// targetRootFlag is a root-level flag selecting the build-state root.
var targetRootFlag string

// noTUIFlag disables the interactive progress view when set.
var noTUIFlag bool

// verboseFlag forces debug-level logging when set.
var verboseFlag bool

const rootLongDescription = `rvmk builds a set of independent bare-metal RISC-V entry-point programs
and derives flashable artifacts from them: a stripped raw binary image per
program, plus a disassembly listing for the non-traced board variants.

Build goals select the board variant at build time:
  elf / binary / build                   qemu virt machine
  elf_lrv / binary_lrv / build_lrv       physical LRV board
  elf_lrv_trace / ..._lrv_trace          LRV board with execution tracing`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rvmk",
		Short: "Bare-metal RISC-V firmware build pipeline",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&sourceDirFlag, sourceFlagName,
		viper.GetString(sourceDirConfigKey),
		"directory holding one source file per entry point",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(sourceFlagName), sourceDirConfigKey)

	cmd.PersistentFlags().StringVar(
		&targetRootFlag, targetFlagName,
		viper.GetString(targetRootConfigKey),
		"root directory for all generated build state",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(targetFlagName), targetRootConfigKey)

	cmd.PersistentFlags().BoolVar(&noTUIFlag, noTUIFlagName, false, "disable the interactive progress view")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// workflowFactory builds the Workflow a goal runs against. Tests replace it
// with a stub.
var workflowFactory = defaultWorkflow

// defaultWorkflow wires the concrete adapters from the resolved configuration.
// It runs per goal invocation, after flag and config values have settled.
func defaultWorkflow(cmd *cobra.Command) domain.Workflow {
	layout := domain.Layout{
		SourceDir:  m.Path(viper.GetString(sourceDirConfigKey)),
		TargetRoot: m.Path(viper.GetString(targetRootConfigKey)),
		OutputDir:  m.Path(outputDir()),
	}

	toolchain := adapter.NewLocalToolchainAdapter(adapter.ToolchainConfig{
		Compiler: viper.GetString(compilerConfigKey),
		Objcopy:  viper.GetString(objcopyConfigKey),
		Objdump:  viper.GetString(objdumpConfigKey),
		Triple:   viper.GetString(tripleConfigKey),
		WorkDir:  ".",
	})

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	manifests := adapter.NewYAMLManifestStore(fsAdapter)
	ui := controller.NewUI(cmd, !noTUIFlag && controller.IsTTY(os.Stdout))
	deriverImpl := domain.NewDeriver(fsAdapter, toolchain, ui)

	return domain.NewWorkflow(layout, fsAdapter, toolchain, manifests, deriverImpl, ui)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
