// Package domain implements the build goals of the rvmk pipeline: compiling
// the entry-point set for one variant and deriving flashable artifacts from
// the resulting ELF images.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rvmk.dev/pkg/rvmk/internal/adapter"
	"rvmk.dev/pkg/rvmk/internal/controller"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// Layout fixes the directory convention of the firmware workspace.
type Layout struct {
	// SourceDir holds the entry-point sources, one program per file.
	SourceDir m.Path
	// TargetRoot holds all generated build state; clean removes it whole.
	TargetRoot m.Path
	// OutputDir is where the compiler places one ELF image per entry point
	// for the fixed (triple, release) pair. It is shared across variants.
	OutputDir m.Path
}

// BuildArgs parameterizes one invocation of a build goal.
type BuildArgs struct {
	// Variant selects the feature-flag set for the compiler.
	Variant m.Variant
	// Derive additionally produces the binary image (and, for non-traced
	// variants, the disassembly listing) per entry point.
	Derive bool
	// Threads caps parallel derivation workers.
	Threads int
}

// VerifyArgs parameterizes the artifact drift check.
type VerifyArgs struct {
	Variant m.Variant
	Threads int
}

// Workflow exposes the named goals the CLI composes. Compilation is a single
// atomic unit of work and always completes before any derivation starts.
type Workflow interface {
	// Build compiles the discovered entry-point set for the requested
	// variant and, when asked, derives the per-entry-point artifacts.
	Build(ctx context.Context, args BuildArgs) error

	// Clean discards all generated build state. It succeeds even if no
	// build has ever run.
	Clean(ctx context.Context) error

	// List reports the discovered entry points and which artifacts
	// currently exist for each.
	List(ctx context.Context) error

	// Verify re-derives every artifact into a scratch directory and reports
	// any drift from what is on disk.
	Verify(ctx context.Context, args VerifyArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.CompilerAdapter
	adapter.ManifestStore
	controller.UI
	Deriver

	layout Layout
}

// NewWorkflow creates a Workflow with the provided layout and dependencies.
func NewWorkflow(
	layout Layout,
	fsAdapter adapter.SourceFSAdapter,
	compiler adapter.CompilerAdapter,
	manifests adapter.ManifestStore,
	deriver Deriver,
	ui controller.UI,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		CompilerAdapter: compiler,
		ManifestStore:   manifests,
		UI:              ui,
		Deriver:         deriver,
		layout:          layout,
	}
}

func (w *workflow) Build(ctx context.Context, args BuildArgs) error {
	entries, err := w.DiscoverEntryPoints(w.layout.SourceDir)
	if err != nil {
		slog.Error("Failed to discover entry points", "sourceDir", w.layout.SourceDir, "error", err)
		return fmt.Errorf("discover entry points: %w", err)
	}

	slog.Info("Discovered entry points", "count", len(entries), "variant", args.Variant.String())

	w.warnOnVariantShadowing(ctx, args.Variant)

	if err := w.compile(ctx, args.Variant, len(entries)); err != nil {
		return err
	}

	if err := w.writeManifest(args.Variant, entries); err != nil {
		return err
	}

	if !args.Derive {
		return nil
	}

	return w.derive(ctx, entries, args)
}

func (w *workflow) compile(ctx context.Context, variant m.Variant, entryCount int) error {
	w.DisplayCompileInfo(ctx, variant.String(), variant.Flags(), entryCount)

	output, err := w.Compile(ctx, variant.Flags())
	if err != nil {
		slog.Error("Compiler invocation failed", "variant", variant.String(), "error", err)
		// The underlying tool's diagnostics are surfaced verbatim.
		w.DisplayToolOutput(ctx, output)

		return fmt.Errorf("compile variant %s: %w", variant.String(), err)
	}

	return nil
}

// writeManifest fingerprints the fresh ELF images and records which variant
// produced them, so a later invocation can detect cross-variant shadowing in
// the shared output directory.
func (w *workflow) writeManifest(variant m.Variant, entries []m.EntryPoint) error {
	manifest := &m.Manifest{
		Version:  m.ManifestVersion,
		Variant:  variant.String(),
		Features: variant.Flags(),
	}

	for _, entry := range entries {
		elfPath := m.ArtifactPath(w.layout.OutputDir, entry, m.KindELF)

		hash, err := w.HashFile(elfPath)
		if err != nil {
			slog.Error("Missing ELF image after compile", "entry", entry, "path", elfPath, "error", err)
			return fmt.Errorf("ELF image for %s not produced: %w", entry, err)
		}

		manifest.Entries = append(manifest.Entries, m.ManifestEntry{Name: entry, SHA256: hash})
	}

	if err := w.Save(w.layout.OutputDir, manifest); err != nil {
		slog.Error("Failed to write build manifest", "outputDir", w.layout.OutputDir, "error", err)
		return fmt.Errorf("write build manifest: %w", err)
	}

	return nil
}

// warnOnVariantShadowing checks the previous build manifest. The output
// directory is keyed by (triple, mode), not by variant, so switching variants
// without a clean leaves the old variant's images under the same names. That
// behavior is kept; the manifest only makes it visible.
func (w *workflow) warnOnVariantShadowing(ctx context.Context, requested m.Variant) {
	previous, err := w.Load(w.layout.OutputDir)
	if err != nil {
		slog.Warn("Failed to read build manifest", "outputDir", w.layout.OutputDir, "error", err)
		return
	}

	if previous == nil || previous.Variant == requested.String() {
		return
	}

	slog.Warn("Output directory holds another variant's images",
		"previous", previous.Variant, "requested", requested.String())
	w.DisplayVariantShadowing(ctx, previous.Variant, requested.String())
}

func (w *workflow) derive(ctx context.Context, entries []m.EntryPoint, args BuildArgs) error {
	results, err := w.Derive(ctx, DeriveArgs{
		Entries:   entries,
		Variant:   args.Variant,
		OutputDir: w.layout.OutputDir,
		Threads:   args.Threads,
	})
	if err != nil {
		return err
	}

	var failures []error

	for _, result := range results {
		if result.Err != nil {
			failures = append(failures, fmt.Errorf("derive %s: %w", result.Entry, result.Err))
		}
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}

	return nil
}

func (w *workflow) Clean(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := w.RemoveAll(w.layout.TargetRoot); err != nil {
		slog.Error("Failed to remove build state", "targetRoot", w.layout.TargetRoot, "error", err)
		return fmt.Errorf("clean %s: %w", w.layout.TargetRoot, err)
	}

	slog.Info("Removed build state", "targetRoot", w.layout.TargetRoot)

	return nil
}

func (w *workflow) List(ctx context.Context) error {
	entries, err := w.DiscoverEntryPoints(w.layout.SourceDir)
	if err != nil {
		slog.Error("Failed to discover entry points", "sourceDir", w.layout.SourceDir, "error", err)
		return fmt.Errorf("discover entry points: %w", err)
	}

	statuses := make([]controller.EntryStatus, 0, len(entries))

	for _, entry := range entries {
		statuses = append(statuses, controller.EntryStatus{
			Entry:      entry,
			HasELF:     w.FileExists(m.ArtifactPath(w.layout.OutputDir, entry, m.KindELF)),
			HasBinary:  w.FileExists(m.ArtifactPath(w.layout.OutputDir, entry, m.KindBinary)),
			HasListing: w.FileExists(m.ArtifactPath(w.layout.OutputDir, entry, m.KindListing)),
		})
	}

	return w.DisplayEntryPoints(ctx, statuses)
}
