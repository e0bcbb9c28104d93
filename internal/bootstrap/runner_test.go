package bootstrap

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	assert.Equal(t, "python", Command{Name: "python"}.String())
	assert.Equal(t, "python -m venv venv", Command{Name: "python", Args: []string{"-m", "venv", "venv"}}.String())
}

func TestExecRunner_NotFound(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Command{Name: "pysetup-definitely-not-a-command", Args: []string{"--version"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrNotFound)

	var cmdErr *CommandError
	assert.False(t, errors.As(err, &cmdErr), "a missing binary is not an exit status")
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	res, err := ExecRunner{}.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.Zero(t, res.ExitCode)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	res, err := ExecRunner{}.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}})
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "broken", cmdErr.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "broken", diagnosticOutput(res, err))
}

func TestExecRunner_WorkingDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	res, err := ExecRunner{}.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd -P"}, Dir: dir})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Stdout)
}

func TestDiagnosticOutput_FallsBackToError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, "boom", diagnosticOutput(&Result{}, err))
	assert.Equal(t, "boom", diagnosticOutput(nil, err))
	assert.Empty(t, diagnosticOutput(nil, nil))
}
