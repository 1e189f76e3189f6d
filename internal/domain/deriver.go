package domain

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"rvmk.dev/pkg/rvmk/internal/adapter"
	"rvmk.dev/pkg/rvmk/internal/controller"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// tmpSuffix marks in-flight tool outputs before the atomic rename.
const tmpSuffix = ".tmp"

// DeriveArgs parameterizes one derivation pass over a set of ELF images.
type DeriveArgs struct {
	Entries []m.EntryPoint
	Variant m.Variant
	// OutputDir holds the ELF images; derived artifacts are written as
	// siblings, distinguished only by suffix.
	OutputDir m.Path
	// Threads caps concurrent workers; values below 1 mean one worker.
	Threads int
}

// DerivationResult reports the outcome for a single entry point.
type DerivationResult struct {
	Entry   m.EntryPoint
	Binary  m.Path
	Listing m.Path // empty when the variant derives no listing
	Err     error
}

// Deriver turns each ELF image into a stripped flat binary and, for
// non-traced variants, a disassembly listing. Entry points are independent:
// derivation runs in parallel and a failure for one never stops the others.
type Deriver interface {
	Derive(ctx context.Context, args DeriveArgs) ([]DerivationResult, error)
}

type deriver struct {
	fs      adapter.SourceFSAdapter
	objtool adapter.ObjToolAdapter
	ui      controller.UI
}

// NewDeriver constructs a Deriver backed by the provided filesystem and
// object-tool adapters.
func NewDeriver(fs adapter.SourceFSAdapter, objtool adapter.ObjToolAdapter, ui controller.UI) Deriver {
	return &deriver{
		fs:      fs,
		objtool: objtool,
		ui:      ui,
	}
}

// Derive runs one failure-isolated derivation task per entry point. The
// returned slice has one result per entry, in input order. The error return
// is reserved for the pass itself (e.g. context cancellation); per-entry
// failures live in the results.
func (d *deriver) Derive(ctx context.Context, args DeriveArgs) ([]DerivationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := d.ui.StartDerivation(ctx, args.Entries); err != nil {
		return nil, err
	}

	defer d.ui.FinishDerivation(ctx)

	results := make([]DerivationResult, len(args.Entries))

	var group errgroup.Group

	group.SetLimit(normalizeThreads(args.Threads))

	for i, entry := range args.Entries {
		group.Go(func() error {
			results[i] = d.deriveOne(ctx, entry, args)
			d.ui.DerivationCompleted(ctx, results[i].Entry, results[i].Err)

			// Failures are collected per entry, never propagated here:
			// returning an error would stop scheduling of the remaining
			// entry points.
			return nil
		})
	}

	_ = group.Wait()

	return results, nil
}

func (d *deriver) deriveOne(ctx context.Context, entry m.EntryPoint, args DeriveArgs) DerivationResult {
	result := DerivationResult{Entry: entry}

	elfPath := m.ArtifactPath(args.OutputDir, entry, m.KindELF)
	if !d.fs.FileExists(elfPath) {
		result.Err = fmt.Errorf("ELF image %s does not exist", elfPath)
		return result
	}

	binPath, err := d.deriveArtifact(ctx, elfPath, args.OutputDir, entry, m.KindBinary)
	if err != nil {
		result.Err = err
		return result
	}

	result.Binary = binPath

	if !args.Variant.Disassemble() {
		return result
	}

	asmPath, err := d.deriveArtifact(ctx, elfPath, args.OutputDir, entry, m.KindListing)
	if err != nil {
		result.Err = err
		return result
	}

	result.Listing = asmPath

	return result
}

// deriveArtifact runs the tool against a temporary sibling name and renames
// the output into place, so a concurrent reader never sees a partial
// artifact.
func (d *deriver) deriveArtifact(ctx context.Context, elfPath, outputDir m.Path, entry m.EntryPoint, kind m.ArtifactKind) (m.Path, error) {
	finalPath := m.ArtifactPath(outputDir, entry, kind)
	tmpPath := finalPath + tmpSuffix

	output, err := d.runObjTool(ctx, kind, elfPath, tmpPath)
	if err != nil {
		_ = d.fs.RemoveAll(tmpPath)
		slog.Error("Artifact derivation failed",
			"entry", entry, "kind", kind.String(), "output", output, "error", err)

		return "", fmt.Errorf("%s for %s: %w\n%s", kind.String(), entry, err, output)
	}

	if err := d.fs.Rename(tmpPath, finalPath); err != nil {
		slog.Error("Failed to move artifact into place", "entry", entry, "path", finalPath, "error", err)
		return "", fmt.Errorf("rename %s artifact for %s: %w", kind.String(), entry, err)
	}

	return finalPath, nil
}

func (d *deriver) runObjTool(ctx context.Context, kind m.ArtifactKind, elfPath, outPath m.Path) (string, error) {
	switch kind {
	case m.KindBinary:
		return d.objtool.StripToBinary(ctx, elfPath, outPath)
	case m.KindListing:
		return d.objtool.Disassemble(ctx, elfPath, outPath)
	default:
		return "", fmt.Errorf("kind %s is not derived", kind.String())
	}
}

func normalizeThreads(threads int) int {
	if threads < 1 {
		return 1
	}

	return threads
}
