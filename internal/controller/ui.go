// Package controller provides output adapters for displaying build pipeline
// progress and results.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

// EntryStatus reports which artifacts currently exist for one entry point.
type EntryStatus struct {
	Entry      m.EntryPoint
	HasELF     bool
	HasBinary  bool
	HasListing bool
}

// DriftReport is the verify outcome for one entry point. A zero report means
// the on-disk artifacts match the re-derived ones byte for byte.
type DriftReport struct {
	Entry         m.EntryPoint
	BinaryDrifted bool
	ListingDiff   string // unified diff, empty when listings match
	Err           error
}

// Drifted reports whether anything diverged for this entry point.
func (r DriftReport) Drifted() bool {
	return r.BinaryDrifted || r.ListingDiff != ""
}

// UI defines the interface for displaying pipeline progress. Implementations
// can use different output methods (simple text, TUI).
type UI interface {
	// DisplayCompileInfo announces the compiler invocation for a variant.
	DisplayCompileInfo(ctx context.Context, variant string, flags []string, entryCount int)

	// DisplayToolOutput surfaces an external tool's diagnostics verbatim.
	DisplayToolOutput(ctx context.Context, output string)

	// DisplayVariantShadowing warns that the shared output directory still
	// holds another variant's images.
	DisplayVariantShadowing(ctx context.Context, previous, requested string)

	// StartDerivation begins progress reporting for the given entry points.
	StartDerivation(ctx context.Context, entries []m.EntryPoint) error

	// DerivationCompleted reports one entry point's outcome. Safe to call
	// from concurrent derivation workers.
	DerivationCompleted(ctx context.Context, entry m.EntryPoint, err error)

	// FinishDerivation ends progress reporting started by StartDerivation.
	FinishDerivation(ctx context.Context)

	// DisplayEntryPoints renders the discovered entry points and their
	// artifact status.
	DisplayEntryPoints(ctx context.Context, statuses []EntryStatus) error

	// DisplayDrift renders the verify results.
	DisplayDrift(ctx context.Context, reports []DriftReport) error
}

// NewUI picks the interactive TUI when attached to a terminal and the plain
// line-oriented UI otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether the file is attached to a terminal, which decides
// between the plain and interactive UI.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
