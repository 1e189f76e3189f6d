package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	out := &bytes.Buffer{}

	cmd := newVersionCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "version")
}
