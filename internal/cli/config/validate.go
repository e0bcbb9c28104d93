package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/pysetup/internal/cli/output"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.VenvDir) == "" {
		errs = append(errs, errors.New("venv_dir is required"))
	}
	if strings.TrimSpace(c.Requirements) == "" {
		errs = append(errs, errors.New("requirements is required"))
	}
	if len(c.Interpreters) == 0 {
		errs = append(errs, errors.New("interpreters must list at least one command"))
	}
	for i, name := range c.Interpreters {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("interpreters[%d] is empty", i))
		}
	}
	if !output.Mode(c.OutputFormat).Valid() {
		errs = append(errs, fmt.Errorf("unknown output format %q (expected auto, text, markdown or json)", c.OutputFormat))
	}
	if c.History && strings.TrimSpace(c.StatePath) == "" {
		errs = append(errs, errors.New("state_path is required when history is enabled"))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, errors.New("watch_debounce must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateProjectDir checks that the project directory exists.
func (c *Config) ValidateProjectDir() error {
	info, err := os.Stat(c.ProjectDir)
	if err != nil {
		return fmt.Errorf("project directory does not exist: %s\nHint: use --project-dir to point at the project checkout", c.ProjectDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("project path is not a directory: %s", c.ProjectDir)
	}
	return nil
}

// Resolve returns p resolved against the project directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectDir, p)
}
