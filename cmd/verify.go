package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rvmk.dev/pkg/rvmk/internal/domain"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// verifyVariantFlag names the variant whose derivation rules apply.
var verifyVariantFlag string

// verifyCmd represents the verify command.
var verifyCmd = newVerifyCmd()

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that on-disk artifacts reproduce from the ELF images",
		Long: `Re-derive the binary image (and disassembly listing, where the variant has
one) for every entry point into a scratch directory and compare byte-for-byte
against the artifacts in the build output directory. Derivation is a pure
function of the ELF image and the tool version, so any difference means the
artifacts on disk are stale.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Resolve the mode name first: an unknown variant is a
			// configuration error and must fail before any tool runs.
			variant, err := m.ParseVariant(verifyVariantFlag)
			if err != nil {
				return err
			}

			return workflowFactory(cmd).Verify(context.Background(), domain.VerifyArgs{
				Variant: variant,
				Threads: viper.GetInt(runParallelConfigKey),
			})
		},
	}

	cmd.Flags().StringVar(&verifyVariantFlag, "variant", m.VariantDefault.String(),
		"variant whose derivation rules apply (qemu, lrv, lrv_trace)")

	return cmd
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
