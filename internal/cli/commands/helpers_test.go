package commands

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/leapstack-labs/pysetup/internal/cli/config"
)

// fakeRunner answers commands from a table and records every invocation.
// Commands without an entry succeed.
type fakeRunner struct {
	mu       sync.Mutex
	stdout   map[string]string
	failures map[string]error
	calls    []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		stdout:   make(map[string]string),
		failures: make(map[string]error),
	}
}

func (f *fakeRunner) answer(cmd, stdout string) { f.stdout[cmd] = stdout }

func (f *fakeRunner) fail(cmd string) {
	f.failures[cmd] = &bootstrap.CommandError{Command: cmd, ExitCode: 1, Stderr: "boom"}
}

func (f *fakeRunner) missing(cmd string) {
	f.failures[cmd] = fmt.Errorf("failed to start %q: %w", cmd, exec.ErrNotFound)
}

func (f *fakeRunner) Run(_ context.Context, c bootstrap.Command) (*bootstrap.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := c.String()
	f.calls = append(f.calls, key)
	res := &bootstrap.Result{Stdout: []byte(f.stdout[key])}
	if err, ok := f.failures[key]; ok {
		res.ExitCode = 1
		res.Stderr = []byte("boom")
		return res, err
	}
	return res, nil
}

func (f *fakeRunner) ran(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// useRunner makes every command in the test run against r.
func useRunner(t *testing.T, r bootstrap.Runner) {
	t.Helper()
	prev := newRunner
	newRunner = func() bootstrap.Runner { return r }
	t.Cleanup(func() { newRunner = prev })
}

// loadConfig loads configuration for dir the way the root command would,
// with extra persistent flags such as "-o", "json".
func loadConfig(t *testing.T, dir string, args ...string) *config.Config {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(append([]string{"--project-dir", dir}, args...)))

	cfg, err := config.LoadConfig("", fs)
	require.NoError(t, err)
	return cfg
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if args == nil {
		// cobra falls back to os.Args for a nil slice
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
