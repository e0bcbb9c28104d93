package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Set up the project, then reinstall whenever requirements change",
		Long: `Run setup once, then watch the requirements manifest.

Every time the manifest is written or recreated, the dependencies are
installed again into the existing virtual environment. Failed installs are
reported and watching continues. Press Ctrl+C to stop.`,
		Example: `  # Watch requirements.txt
  pysetup watch

  # Wait two seconds after the last change before reinstalling
  pysetup watch --debounce 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Delay after the last change before reinstalling (default: watch_debounce)")

	return cmd
}

func runWatch(cmd *cobra.Command, debounce time.Duration) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	if err := cfg.ValidateProjectDir(); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = cfg.WatchDebounce
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	boot := cmdCtx.NewBootstrapper(r)

	// The initial run may fail on a missing or broken manifest; watching
	// gives the user the chance to fix it. Anything earlier is fatal.
	report, err := boot.Run(ctx)
	if err != nil && !watchRecoverable(err) {
		return err
	}
	envPython := report.EnvironmentPython
	if envPython == "" {
		envPython = boot.EnvironmentPython()
	}

	manifest := cfg.Resolve(cfg.Requirements)
	r.Status("Watching " + cfg.Requirements + " for changes (Ctrl+C to stop)...")

	w := &manifestWatcher{
		path:     manifest,
		debounce: debounce,
		logger:   cmdCtx.Logger,
		install: func(ctx context.Context) error {
			r.Status(cfg.Requirements + " changed.")
			return boot.InstallDependencies(ctx, envPython)
		},
	}
	return w.Run(ctx)
}

// watchRecoverable reports whether a failed initial run can continue into watching.
func watchRecoverable(err error) bool {
	return errors.Is(err, bootstrap.ErrManifestMissing) || errors.Is(err, bootstrap.ErrDependencyInstall)
}

// manifestWatcher calls install after the manifest settles following a change.
type manifestWatcher struct {
	path     string
	debounce time.Duration
	install  func(ctx context.Context) error
	logger   *slog.Logger
}

// Run blocks until ctx is cancelled. Install errors are logged and do not stop
// the watcher; they have already been reported to the user.
func (w *manifestWatcher) Run(ctx context.Context) error {
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them in place, which
	// drops a watch on the file itself. Watch the directory instead.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Debug("watching manifest", "path", w.path, "debounce", w.debounce)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.isManifestEvent(event) {
				continue
			}
			w.logger.Debug("manifest event", "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if err := w.install(ctx); err != nil {
				w.logger.Debug("reinstall failed", "error", err)
			}
		}
	}
}

// isManifestEvent reports whether event writes or recreates the manifest.
func (w *manifestWatcher) isManifestEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
