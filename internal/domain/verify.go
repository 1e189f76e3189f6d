package domain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pmezard/go-difflib/difflib"

	"rvmk.dev/pkg/rvmk/internal/controller"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// diffContextLines bounds the unified diff shown for drifting listings.
const diffContextLines = 3

// Verify re-derives every artifact from the ELF images on disk into a scratch
// directory and compares the bytes against the artifacts already in the
// output directory. With an unchanged ELF and tool version, derivation is a
// pure function, so any difference means the on-disk artifacts are stale or
// were produced by different inputs.
func (w *workflow) Verify(ctx context.Context, args VerifyArgs) error {
	entries, err := w.DiscoverEntryPoints(w.layout.SourceDir)
	if err != nil {
		slog.Error("Failed to discover entry points", "sourceDir", w.layout.SourceDir, "error", err)
		return fmt.Errorf("discover entry points: %w", err)
	}

	scratchDir, err := w.CreateTempDir("rvmk-verify-*")
	if err != nil {
		slog.Error("Failed to create scratch dir", "error", err)
		return fmt.Errorf("create scratch dir: %w", err)
	}

	defer func() {
		if err := w.RemoveAll(scratchDir); err != nil {
			slog.Error("Failed to remove scratch dir", "scratchDir", scratchDir, "error", err)
		}
	}()

	if err := w.copyELFImages(entries, scratchDir); err != nil {
		return err
	}

	results, err := w.Derive(ctx, DeriveArgs{
		Entries:   entries,
		Variant:   args.Variant,
		OutputDir: scratchDir,
		Threads:   args.Threads,
	})
	if err != nil {
		return err
	}

	reports := make([]controller.DriftReport, 0, len(results))

	for _, result := range results {
		reports = append(reports, w.compareDerived(result, scratchDir))
	}

	return w.DisplayDrift(ctx, reports)
}

// copyELFImages stages the existing ELF images into the scratch directory so
// the tools re-derive from exactly the same inputs.
func (w *workflow) copyELFImages(entries []m.EntryPoint, scratchDir m.Path) error {
	for _, entry := range entries {
		elfPath := m.ArtifactPath(w.layout.OutputDir, entry, m.KindELF)

		content, err := w.ReadFile(elfPath)
		if err != nil {
			slog.Error("Failed to read ELF image", "entry", entry, "path", elfPath, "error", err)
			return fmt.Errorf("read ELF image for %s: %w", entry, err)
		}

		staged := m.ArtifactPath(scratchDir, entry, m.KindELF)
		if err := w.WriteFileAtomic(staged, content, 0o644); err != nil {
			slog.Error("Failed to stage ELF image", "entry", entry, "path", staged, "error", err)
			return fmt.Errorf("stage ELF image for %s: %w", entry, err)
		}
	}

	return nil
}

func (w *workflow) compareDerived(result DerivationResult, scratchDir m.Path) controller.DriftReport {
	report := controller.DriftReport{Entry: result.Entry}

	if result.Err != nil {
		report.Err = result.Err
		return report
	}

	binaryDrift, err := w.compareBinary(result.Entry, scratchDir)
	if err != nil {
		report.Err = err
		return report
	}

	report.BinaryDrifted = binaryDrift

	if result.Listing == "" {
		return report
	}

	diff, err := w.compareListing(result.Entry, scratchDir)
	if err != nil {
		report.Err = err
		return report
	}

	report.ListingDiff = diff

	return report
}

func (w *workflow) compareBinary(entry m.EntryPoint, scratchDir m.Path) (bool, error) {
	onDisk := m.ArtifactPath(w.layout.OutputDir, entry, m.KindBinary)
	rederived := m.ArtifactPath(scratchDir, entry, m.KindBinary)

	onDiskHash, err := w.HashFile(onDisk)
	if err != nil {
		return false, fmt.Errorf("read binary image for %s: %w", entry, err)
	}

	rederivedHash, err := w.HashFile(rederived)
	if err != nil {
		return false, fmt.Errorf("read re-derived binary image for %s: %w", entry, err)
	}

	return onDiskHash != rederivedHash, nil
}

// compareListing produces a unified diff between the on-disk listing and the
// re-derived one. An empty diff means no drift.
func (w *workflow) compareListing(entry m.EntryPoint, scratchDir m.Path) (string, error) {
	onDisk, err := w.ReadFile(m.ArtifactPath(w.layout.OutputDir, entry, m.KindListing))
	if err != nil {
		return "", fmt.Errorf("read listing for %s: %w", entry, err)
	}

	rederived, err := w.ReadFile(m.ArtifactPath(scratchDir, entry, m.KindListing))
	if err != nil {
		return "", fmt.Errorf("read re-derived listing for %s: %w", entry, err)
	}

	if string(onDisk) == string(rederived) {
		return "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(onDisk)),
		B:        difflib.SplitLines(string(rederived)),
		FromFile: string(entry) + m.KindListing.Suffix(),
		ToFile:   string(entry) + m.KindListing.Suffix() + " (re-derived)",
		Context:  diffContextLines,
	})
	if err != nil {
		return "", fmt.Errorf("diff listing for %s: %w", entry, err)
	}

	return diff, nil
}
