package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

// SimpleUI implements UI with plain line output through the cobra command.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayCompileInfo announces the compiler invocation.
func (s *SimpleUI) DisplayCompileInfo(ctx context.Context, variant string, flags []string, entryCount int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Compiling %d entry point(s), variant %s (features: %s)\n",
		entryCount, variant, strings.Join(flags, ", "))
}

// DisplayToolOutput surfaces tool diagnostics verbatim.
func (s *SimpleUI) DisplayToolOutput(ctx context.Context, output string) {
	if err := ctx.Err(); err != nil {
		return
	}

	if output == "" {
		return
	}

	s.printf("%s", output)

	if !strings.HasSuffix(output, "\n") {
		s.printf("\n")
	}
}

// DisplayVariantShadowing warns about a variant switch without a clean.
func (s *SimpleUI) DisplayVariantShadowing(ctx context.Context, previous, requested string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("warning: output directory was last built for variant %s; building %s without a clean overwrites it\n",
		previous, requested)
}

// StartDerivation begins progress reporting.
func (s *SimpleUI) StartDerivation(ctx context.Context, entries []m.EntryPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Deriving artifacts for %d entry point(s)\n", len(entries))

	return nil
}

// DerivationCompleted reports one entry point's outcome.
func (s *SimpleUI) DerivationCompleted(ctx context.Context, entry m.EntryPoint, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return
	}

	if err != nil {
		s.printf("  %s: FAILED: %v\n", entry, err)
		return
	}

	s.printf("  %s: ok\n", entry)
}

// FinishDerivation ends progress reporting (no-op for SimpleUI).
func (s *SimpleUI) FinishDerivation(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayEntryPoints renders entry points and artifact status as a table.
func (s *SimpleUI) DisplayEntryPoints(ctx context.Context, statuses []EntryStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderEntryTable(statuses))

	return nil
}

// DisplayDrift renders the verify results.
func (s *SimpleUI) DisplayDrift(ctx context.Context, reports []DriftReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	drifted := 0

	for _, report := range reports {
		switch {
		case report.Err != nil:
			s.printf("%s: verify failed: %v\n", report.Entry, report.Err)

			drifted++
		case report.Drifted():
			s.printf("%s: artifacts drifted\n", report.Entry)

			if report.ListingDiff != "" {
				s.printf("%s\n", report.ListingDiff)
			}

			drifted++
		default:
			s.printf("%s: up to date\n", report.Entry)
		}
	}

	if drifted == 0 {
		s.printf("All artifacts reproduce byte-for-byte.\n")
	}

	return nil
}

func renderEntryTable(statuses []EntryStatus) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Entry Point", "ELF", "Bin", "Asm"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
	})

	for _, status := range statuses {
		table.Append([]string{
			string(status.Entry),
			presenceMark(status.HasELF),
			presenceMark(status.HasBinary),
			presenceMark(status.HasListing),
		})
	}

	table.SetFooter([]string{fmt.Sprintf("Total %d", len(statuses)), "", "", ""})
	table.Render()

	return tableBuffer.String()
}

func presenceMark(present bool) string {
	if present {
		return "x"
	}

	return "-"
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
