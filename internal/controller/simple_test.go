package controller

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

func newSimpleUIForTest() (*SimpleUI, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	return NewSimpleUI(cmd), buf
}

func TestSimpleUICompileInfo(t *testing.T) {
	ui, buf := newSimpleUIForTest()

	ui.DisplayCompileInfo(context.Background(), "lrv_trace", []string{"board_lrv", "trace"}, 3)

	output := buf.String()
	assert.Contains(t, output, "3 entry point(s)")
	assert.Contains(t, output, "lrv_trace")
	assert.Contains(t, output, "board_lrv, trace")
}

func TestSimpleUIToolOutputVerbatim(t *testing.T) {
	ui, buf := newSimpleUIForTest()

	ui.DisplayToolOutput(context.Background(), "error[E0432]: unresolved import\n")

	assert.Equal(t, "error[E0432]: unresolved import\n", buf.String())
}

func TestSimpleUIToolOutputEmpty(t *testing.T) {
	ui, buf := newSimpleUIForTest()

	ui.DisplayToolOutput(context.Background(), "")

	assert.Empty(t, buf.String())
}

func TestSimpleUIDerivationProgress(t *testing.T) {
	ui, buf := newSimpleUIForTest()
	ctx := context.Background()

	require.NoError(t, ui.StartDerivation(ctx, []m.EntryPoint{"alpha", "beta"}))
	ui.DerivationCompleted(ctx, "alpha", nil)
	ui.DerivationCompleted(ctx, "beta", errors.New("objcopy: exit status 1"))
	ui.FinishDerivation(ctx)

	output := buf.String()
	assert.Contains(t, output, "alpha: ok")
	assert.Contains(t, output, "beta: FAILED")
}

func TestRenderEntryTable(t *testing.T) {
	table := renderEntryTable([]EntryStatus{
		{Entry: "alpha", HasELF: true, HasBinary: true, HasListing: true},
		{Entry: "beta", HasELF: true},
	})

	assert.Contains(t, table, "alpha")
	assert.Contains(t, table, "beta")
	assert.Contains(t, table, "ENTRY POINT")
	assert.Contains(t, table, "TOTAL 2")
}

func TestSimpleUIDriftReports(t *testing.T) {
	ui, buf := newSimpleUIForTest()

	require.NoError(t, ui.DisplayDrift(context.Background(), []DriftReport{
		{Entry: "alpha"},
		{Entry: "beta", BinaryDrifted: true},
		{Entry: "gamma", Err: errors.New("read binary image: no such file")},
	}))

	output := buf.String()
	assert.Contains(t, output, "alpha: up to date")
	assert.Contains(t, output, "beta: artifacts drifted")
	assert.Contains(t, output, "gamma: verify failed")
}

func TestSimpleUIDriftAllClean(t *testing.T) {
	ui, buf := newSimpleUIForTest()

	require.NoError(t, ui.DisplayDrift(context.Background(), []DriftReport{
		{Entry: "alpha"},
	}))

	assert.Contains(t, buf.String(), "All artifacts reproduce byte-for-byte.")
}
