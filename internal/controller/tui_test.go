package controller

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

func TestDerivationModelTransitions(t *testing.T) {
	model := newDerivationModel([]m.EntryPoint{"alpha", "beta"})

	next, _ := model.Update(entryDoneMsg{entry: "alpha"})
	model, ok := next.(derivationModel)
	require.True(t, ok)

	next, _ = model.Update(entryDoneMsg{entry: "beta", err: errors.New("objcopy: exit status 1")})
	model, ok = next.(derivationModel)
	require.True(t, ok)

	view := model.View()
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "beta")
	assert.Contains(t, view, "exit status 1")
}

func TestDerivationModelPendingView(t *testing.T) {
	model := newDerivationModel([]m.EntryPoint{"alpha"})

	// One line per entry point while workers are still running.
	view := model.View()
	assert.Equal(t, 1, strings.Count(view, "\n"))
	assert.Contains(t, view, "alpha")
}

func TestDerivationModelQuitsOnFinish(t *testing.T) {
	model := newDerivationModel([]m.EntryPoint{"alpha"})

	next, cmd := model.Update(finishMsg{})
	model, ok := next.(derivationModel)
	require.True(t, ok)
	assert.True(t, model.done)
	require.NotNil(t, cmd)
}
