package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellControlStartTracksPID(t *testing.T) {
	c := &ShellControl{StartCommand: "true"}
	require.NoError(t, c.Start())
	assert.NotEqual(t, int32(0), c.BackendPID())
}

func TestShellControlEmptyCommandIsNoop(t *testing.T) {
	c := &ShellControl{}
	assert.NoError(t, c.Start())
	assert.Equal(t, int32(0), c.BackendPID())
}

func TestShellControlStopRunsAllCommands(t *testing.T) {
	c := &ShellControl{StopCommands: []string{"true", "true"}}
	assert.NoError(t, c.Stop())
}
