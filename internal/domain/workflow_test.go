package domain

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvmk.dev/pkg/rvmk/internal/adapter"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// fakeCompiler writes one fake ELF per configured entry point into the output
// directory, the way one cargo invocation produces the whole set. The ELF
// bytes depend on the feature flags so a variant switch changes the images.
type fakeCompiler struct {
	outputDir string
	entries   []string
	fail      bool
	calls     [][]string
}

func (f *fakeCompiler) Compile(_ context.Context, features []string) (string, error) {
	f.calls = append(f.calls, features)

	if f.fail {
		return "error[E0432]: unresolved import `board`", errors.New("exit status 101")
	}

	if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
		return "", err
	}

	for _, entry := range f.entries {
		content := []byte("elf-" + entry + "-" + strings.Join(features, ","))
		if err := os.WriteFile(filepath.Join(f.outputDir, entry), content, 0o755); err != nil {
			return "", err
		}
	}

	return "Finished `release` profile [optimized] target(s)", nil
}

type workflowFixture struct {
	workflow Workflow
	compiler *fakeCompiler
	objtool  *fakeObjTool
	out      *bytes.Buffer
	layout   Layout
}

func newWorkflowFixture(t *testing.T, entries ...string) *workflowFixture {
	t.Helper()

	root := t.TempDir()
	sourceDir := filepath.Join(root, "src", "bin")
	targetRoot := filepath.Join(root, "target")
	outputDir := filepath.Join(targetRoot, "riscv64gc-unknown-none-elf", "release")

	require.NoError(t, os.MkdirAll(sourceDir, 0o755))

	for _, entry := range entries {
		require.NoError(t, os.WriteFile(filepath.Join(sourceDir, entry+".rs"), []byte("fn main() {}"), 0o644))
	}

	layout := Layout{
		SourceDir:  m.Path(sourceDir),
		TargetRoot: m.Path(targetRoot),
		OutputDir:  m.Path(outputDir),
	}

	compiler := &fakeCompiler{outputDir: outputDir, entries: entries}
	objtool := newFakeObjTool()
	fs := adapter.NewLocalSourceFSAdapter()
	manifests := adapter.NewYAMLManifestStore(fs)
	ui, out := testUI()
	deriverImpl := NewDeriver(fs, objtool, ui)

	return &workflowFixture{
		workflow: NewWorkflow(layout, fs, compiler, manifests, deriverImpl, ui),
		compiler: compiler,
		objtool:  objtool,
		out:      out,
		layout:   layout,
	}
}

func (f *workflowFixture) artifact(entry string, kind m.ArtifactKind) string {
	return string(m.ArtifactPath(f.layout.OutputDir, m.EntryPoint(entry), kind))
}

func TestBuildCompileOnly(t *testing.T) {
	f := newWorkflowFixture(t, "alpha", "beta")

	err := f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantBoard})
	require.NoError(t, err)

	// One compiler invocation for the whole set, with the board flag only.
	require.Len(t, f.compiler.calls, 1)
	assert.Equal(t, []string{"board_lrv"}, f.compiler.calls[0])

	assert.FileExists(t, f.artifact("alpha", m.KindELF))
	assert.FileExists(t, f.artifact("beta", m.KindELF))
	assert.NoFileExists(t, f.artifact("alpha", m.KindBinary))
	assert.Empty(t, f.objtool.stripCalls)
}

func TestBuildDerivesFullArtifactMatrix(t *testing.T) {
	f := newWorkflowFixture(t, "alpha", "beta")

	err := f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
		Threads: 2,
	})
	require.NoError(t, err)

	for _, entry := range []string{"alpha", "beta"} {
		assert.FileExists(t, f.artifact(entry, m.KindELF))
		assert.FileExists(t, f.artifact(entry, m.KindBinary))
		assert.FileExists(t, f.artifact(entry, m.KindListing))
	}
}

func TestBuildTracedVariantDerivesNoListings(t *testing.T) {
	f := newWorkflowFixture(t, "alpha", "beta")

	err := f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantBoardTraced,
		Derive:  true,
	})
	require.NoError(t, err)

	require.Len(t, f.compiler.calls, 1)
	assert.Equal(t, []string{"board_lrv", "trace"}, f.compiler.calls[0])

	for _, entry := range []string{"alpha", "beta"} {
		assert.FileExists(t, f.artifact(entry, m.KindBinary))
		assert.NoFileExists(t, f.artifact(entry, m.KindListing))
	}
}

func TestBuildWritesManifest(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	err := f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantDefault})
	require.NoError(t, err)

	store := adapter.NewYAMLManifestStore(adapter.NewLocalSourceFSAdapter())

	manifest, err := store.Load(f.layout.OutputDir)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, "qemu", manifest.Variant)
	assert.Equal(t, []string{"board_qemu"}, manifest.Features)
	require.NotNil(t, manifest.Entry("alpha"))
	assert.NotEmpty(t, manifest.Entry("alpha").SHA256)
}

func TestBuildCompileFailureAbortsBeforeDerivation(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")
	f.compiler.fail = true

	err := f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	})
	require.Error(t, err)

	// The compiler's diagnostics surface verbatim and no derivation ran.
	assert.Contains(t, f.out.String(), "error[E0432]")
	assert.Empty(t, f.objtool.stripCalls)
	assert.Empty(t, f.objtool.disasmCalls)
}

func TestBuildWarnsOnVariantSwitchWithoutClean(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantDefault}))
	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantBoard}))

	assert.Contains(t, f.out.String(), "last built for variant qemu")
}

func TestBuildSameVariantDoesNotWarn(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantDefault}))
	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantDefault}))

	assert.NotContains(t, f.out.String(), "warning")
}

func TestBuildEmptyEntryPointSet(t *testing.T) {
	f := newWorkflowFixture(t)

	err := f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	})
	require.NoError(t, err)
	require.Len(t, f.compiler.calls, 1)
}

func TestBuildMissingSourceDirFailsBeforeCompile(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")
	require.NoError(t, os.RemoveAll(string(f.layout.SourceDir)))

	err := f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantDefault})
	require.Error(t, err)
	assert.Empty(t, f.compiler.calls)
}

func TestBuildReportsEveryFailedEntry(t *testing.T) {
	f := newWorkflowFixture(t, "alpha", "beta", "gamma")
	f.objtool.failStripFor["alpha"] = true
	f.objtool.failStripFor["gamma"] = true

	err := f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "derive alpha")
	assert.Contains(t, err.Error(), "derive gamma")
	assert.NotContains(t, err.Error(), "derive beta")
	assert.FileExists(t, f.artifact("beta", m.KindBinary))
}

func TestCleanRemovesAllBuildState(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	}))
	require.NoError(t, f.workflow.Clean(context.Background()))

	assert.NoDirExists(t, string(f.layout.TargetRoot))
}

func TestCleanSucceedsWithoutPriorBuild(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	assert.NoError(t, f.workflow.Clean(context.Background()))
	assert.NoError(t, f.workflow.Clean(context.Background()))
}

func TestCleanThenBuildConverges(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	}))
	require.NoError(t, f.workflow.Clean(context.Background()))
	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	}))

	assert.FileExists(t, f.artifact("alpha", m.KindBinary))
	assert.FileExists(t, f.artifact("alpha", m.KindListing))
}

func TestListShowsArtifactPresence(t *testing.T) {
	f := newWorkflowFixture(t, "alpha", "beta")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{Variant: m.VariantDefault}))
	require.NoError(t, f.workflow.List(context.Background()))

	output := f.out.String()
	assert.Contains(t, output, "alpha")
	assert.Contains(t, output, "beta")
	assert.Contains(t, output, "ENTRY POINT")
}

func TestVerifyUpToDate(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	}))

	err := f.workflow.Verify(context.Background(), VerifyArgs{Variant: m.VariantDefault})
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "alpha: up to date")
}

func TestVerifyDetectsBinaryDrift(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	}))

	require.NoError(t, os.WriteFile(f.artifact("alpha", m.KindBinary), []byte("tampered"), 0o644))

	err := f.workflow.Verify(context.Background(), VerifyArgs{Variant: m.VariantDefault})
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "alpha: artifacts drifted")
}

func TestVerifyShowsListingDiff(t *testing.T) {
	f := newWorkflowFixture(t, "alpha")

	require.NoError(t, f.workflow.Build(context.Background(), BuildArgs{
		Variant: m.VariantDefault,
		Derive:  true,
	}))

	require.NoError(t, os.WriteFile(f.artifact("alpha", m.KindListing), []byte("start:\n  li a0, 1\n"), 0o644))

	err := f.workflow.Verify(context.Background(), VerifyArgs{Variant: m.VariantDefault})
	require.NoError(t, err)

	output := f.out.String()
	assert.Contains(t, output, "alpha: artifacts drifted")
	assert.Contains(t, output, "re-derived")
}
