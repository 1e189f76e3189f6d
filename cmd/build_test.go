package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvmk.dev/pkg/rvmk/internal/domain"
	m "rvmk.dev/pkg/rvmk/internal/model"
)

// stubWorkflow records goal invocations so command wiring can be asserted
// without touching any toolchain.
type stubWorkflow struct {
	buildArgs   []domain.BuildArgs
	verifyArgs  []domain.VerifyArgs
	cleanCalls  int
	listCalls   int
	returnedErr error
}

func (s *stubWorkflow) Build(_ context.Context, args domain.BuildArgs) error {
	s.buildArgs = append(s.buildArgs, args)
	return s.returnedErr
}

func (s *stubWorkflow) Clean(_ context.Context) error {
	s.cleanCalls++
	return s.returnedErr
}

func (s *stubWorkflow) List(_ context.Context) error {
	s.listCalls++
	return s.returnedErr
}

func (s *stubWorkflow) Verify(_ context.Context, args domain.VerifyArgs) error {
	s.verifyArgs = append(s.verifyArgs, args)
	return s.returnedErr
}

// newTestRoot builds a fresh root command with the full goal set and swaps
// the workflow factory for a stub. Restores the factory on cleanup.
func newTestRoot(t *testing.T) (*cobra.Command, *stubWorkflow) {
	t.Helper()

	stub := &stubWorkflow{}

	original := workflowFactory
	workflowFactory = func(*cobra.Command) domain.Workflow { return stub }

	t.Cleanup(func() { workflowFactory = original })

	root := newRootCmd()
	for _, goal := range buildGoals {
		root.AddCommand(newGoalCmd(goal))
	}

	root.AddCommand(newCleanCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newVerifyCmd())
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	return root, stub
}

func TestGoalCommandVariantMapping(t *testing.T) {
	cases := []struct {
		goal    string
		variant m.Variant
		derive  bool
	}{
		{"elf", m.VariantDefault, false},
		{"elf_lrv", m.VariantBoard, false},
		{"elf_lrv_trace", m.VariantBoardTraced, false},
		{"binary", m.VariantDefault, true},
		{"binary_lrv", m.VariantBoard, true},
		{"binary_lrv_trace", m.VariantBoardTraced, true},
	}

	for _, tc := range cases {
		t.Run(tc.goal, func(t *testing.T) {
			root, stub := newTestRoot(t)

			root.SetArgs([]string{tc.goal})
			require.NoError(t, root.Execute())

			require.Len(t, stub.buildArgs, 1)
			assert.Equal(t, tc.variant, stub.buildArgs[0].Variant)
			assert.Equal(t, tc.derive, stub.buildArgs[0].Derive)
		})
	}
}

func TestBuildAliasesResolveToBinaryGoals(t *testing.T) {
	for _, alias := range []string{"build", "build_lrv", "build_lrv_trace"} {
		t.Run(alias, func(t *testing.T) {
			root, stub := newTestRoot(t)

			root.SetArgs([]string{alias})
			require.NoError(t, root.Execute())

			require.Len(t, stub.buildArgs, 1)
			assert.True(t, stub.buildArgs[0].Derive)
		})
	}
}

func TestGoalParallelFlag(t *testing.T) {
	root, stub := newTestRoot(t)

	root.SetArgs([]string{"binary", "--parallel", "2"})
	require.NoError(t, root.Execute())

	require.Len(t, stub.buildArgs, 1)
	assert.Equal(t, 2, stub.buildArgs[0].Threads)
}

func TestCleanCmd(t *testing.T) {
	root, stub := newTestRoot(t)

	root.SetArgs([]string{"clean"})
	require.NoError(t, root.Execute())

	assert.Equal(t, 1, stub.cleanCalls)
}

func TestListCmd(t *testing.T) {
	root, stub := newTestRoot(t)

	root.SetArgs([]string{"list"})
	require.NoError(t, root.Execute())

	assert.Equal(t, 1, stub.listCalls)
}

func TestVerifyCmdVariant(t *testing.T) {
	root, stub := newTestRoot(t)

	root.SetArgs([]string{"verify", "--variant", "lrv"})
	require.NoError(t, root.Execute())

	require.Len(t, stub.verifyArgs, 1)
	assert.Equal(t, m.VariantBoard, stub.verifyArgs[0].Variant)
}

func TestVerifyUnknownVariantFailsBeforeWorkflow(t *testing.T) {
	root, stub := newTestRoot(t)

	root.SetArgs([]string{"verify", "--variant", "lrv_debug"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variant")

	// Zero side effects: the workflow (and so any tool) was never reached.
	assert.Empty(t, stub.verifyArgs)
	assert.Empty(t, stub.buildArgs)
}

func TestGoalCommandsRejectPositionalArgs(t *testing.T) {
	root, stub := newTestRoot(t)

	root.SetArgs([]string{"binary", "extra"})
	require.Error(t, root.Execute())
	assert.Empty(t, stub.buildArgs)
}
