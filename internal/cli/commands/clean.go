package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/pysetup/internal/cli/config"
	"github.com/leapstack-labs/pysetup/internal/cli/output"
	"github.com/spf13/cobra"
)

// errOutsideProject is returned for clean targets that escape the project directory.
var errOutsideProject = errors.New("path is outside the project directory")

// CleanOptions holds options for the clean command.
type CleanOptions struct {
	DryRun bool
	Yes    bool
}

// CleanOutput is the JSON output for the clean command.
type CleanOutput struct {
	Removed []string `json:"removed"`
	Skipped []string `json:"skipped,omitempty"`
	DryRun  bool     `json:"dry_run"`
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	opts := &CleanOptions{}
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove generated analysis outputs",
		Long: `Remove the files and directories produced by the analysis activities.

The targets come from the clean_paths setting and default to the
activity image directories and the processed data sets. Targets that do
not exist are skipped. The virtual environment is never removed.

When run from a terminal, clean asks before removing anything unless
--yes is given.`,
		Example: `  # Remove generated outputs
  pysetup clean

  # Show what would be removed
  pysetup clean --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "List targets without removing them")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runClean(cmd *cobra.Command, opts *CleanOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	jsonMode := r.EffectiveMode() == output.ModeJSON

	targets, err := cleanTargets(cfg)
	if err != nil {
		return err
	}

	if !opts.DryRun && !opts.Yes && !jsonMode && isInteractive(cmd) {
		ok, err := confirm(cmd, "Remove generated outputs from "+cfg.ProjectDir+"?")
		if err != nil {
			return err
		}
		if !ok {
			r.Warning("Cleanup cancelled.")
			return nil
		}
	}

	out := CleanOutput{Removed: []string{}, DryRun: opts.DryRun}
	for _, target := range targets {
		rel := displayPath(cfg.ProjectDir, target)
		info, err := os.Lstat(target)
		if os.IsNotExist(err) {
			out.Skipped = append(out.Skipped, rel)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", rel, err)
		}
		if info.IsDir() {
			rel += "/"
		}

		if !opts.DryRun {
			if err := os.RemoveAll(target); err != nil {
				return fmt.Errorf("failed to remove %s: %w", rel, err)
			}
			cmdCtx.Logger.Debug("removed", "path", target)
		}
		out.Removed = append(out.Removed, rel)

		if !jsonMode {
			if opts.DryRun {
				r.Status("Would remove " + rel)
			} else {
				r.Success("Removed " + rel)
			}
		}
	}

	if jsonMode {
		return r.JSON(out)
	}
	if opts.DryRun {
		r.Status(fmt.Sprintf("%d target(s) would be removed.", len(out.Removed)))
		return nil
	}
	r.Success("Cleanup complete!")
	return nil
}

// cleanTargets resolves the configured clean paths. It refuses any path that
// leaves the project directory or that would remove the virtual environment.
func cleanTargets(cfg *config.Config) ([]string, error) {
	root := filepath.Clean(cfg.ProjectDir)
	venv := filepath.Clean(cfg.Resolve(cfg.VenvDir))

	targets := make([]string, 0, len(cfg.CleanPaths))
	for _, p := range cfg.CleanPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		abs := filepath.Clean(cfg.Resolve(p))
		if !within(root, abs) || abs == root {
			return nil, fmt.Errorf("clean target %q: %w", p, errOutsideProject)
		}
		if within(abs, venv) || within(venv, abs) {
			return nil, fmt.Errorf("clean target %q would remove the virtual environment %s", p, cfg.VenvDir)
		}
		targets = append(targets, abs)
	}
	return targets, nil
}

// within reports whether path lies inside (or is) dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func displayPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
