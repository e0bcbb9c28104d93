package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/leapstack-labs/pysetup/internal/cli/testutil"
	logtest "github.com/leapstack-labs/pysetup/internal/testutil"
)

func TestManifestWatcher_ReinstallsOnChange(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	manifest := filepath.Join(dir, "requirements.txt")

	var installs atomic.Int32
	w := &manifestWatcher{
		path:     manifest,
		debounce: 20 * time.Millisecond,
		logger:   logtest.NewTestLogger(t),
		install: func(context.Context) error {
			installs.Add(1)
			return errors.New("install failed")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is registered asynchronously; keep touching the manifest
	// until a reinstall is observed. Failed installs must not stop the loop.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(manifest, []byte("pandas\n"), 0o644)
		return installs.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestManifestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	var installs atomic.Int32
	w := &manifestWatcher{
		path:     filepath.Join(dir, "requirements.txt"),
		debounce: 10 * time.Millisecond,
		install: func(context.Context) error {
			installs.Add(1)
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	go func() {
		for i := 0; i < 5; i++ {
			_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
			time.Sleep(20 * time.Millisecond)
		}
	}()

	require.NoError(t, w.Run(ctx))
	assert.Zero(t, installs.Load())
}

func TestManifestWatcher_MissingDirectory(t *testing.T) {
	w := &manifestWatcher{
		path:    filepath.Join(t.TempDir(), "gone", "requirements.txt"),
		install: func(context.Context) error { return nil },
	}
	assert.Error(t, w.Run(context.Background()))
}

func TestIsManifestEvent(t *testing.T) {
	w := &manifestWatcher{path: "/project/requirements.txt"}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: "/project/requirements.txt", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "/project/requirements.txt", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "/project/requirements.txt", Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: "/project/requirements.txt", Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: "/project/setup.cfg", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.isManifestEvent(tt.event))
		})
	}
}

func TestWatchRecoverable(t *testing.T) {
	assert.True(t, watchRecoverable(&bootstrap.StageError{Kind: bootstrap.ErrManifestMissing}))
	assert.True(t, watchRecoverable(&bootstrap.StageError{Kind: bootstrap.ErrDependencyInstall}))
	assert.False(t, watchRecoverable(&bootstrap.StageError{Kind: bootstrap.ErrInterpreterNotFound}))
	assert.False(t, watchRecoverable(&bootstrap.StageError{Kind: bootstrap.ErrEnvironmentCreation}))
}

func TestWatch_StopsWhenInterpreterMissing(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	loadConfig(t, dir, "-o", "text")
	runner := newFakeRunner()
	runner.missing("python --version")
	runner.missing("python3 --version")
	useRunner(t, runner)

	_, _, err := execute(NewWatchCommand())
	assert.ErrorIs(t, err, bootstrap.ErrInterpreterNotFound)
}

func TestWatch_RunsSetupThenWatches(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	loadConfig(t, dir, "-o", "text")
	useRunner(t, newFakeRunner())

	cmd := NewWatchCommand()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	cmd.SetContext(ctx)

	stdout, _, err := execute(cmd)
	require.NoError(t, err)
	assert.Contains(t, stdout, "[OK] ✅ Dependencies installed successfully.")
	assert.Contains(t, stdout, "[SETUP] Watching requirements.txt for changes (Ctrl+C to stop)...")
}
