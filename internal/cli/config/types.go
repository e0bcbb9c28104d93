// Package config provides configuration management for the pysetup CLI.
//
// Values are layered, lowest to highest precedence: built-in defaults, the
// project's pysetup.yaml, PYSETUP_* environment variables, and flags that
// were explicitly set on the command line.
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/leapstack-labs/pysetup/internal/state"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectDir is absolute once loaded. VenvDir, Requirements and
	// StatePath stay as configured and are resolved against it. History
	// enables recording each setup run in the database at StatePath.
	ProjectDir    string        `koanf:"project_dir" yaml:"project_dir" json:"project_dir"`
	VenvDir       string        `koanf:"venv_dir" yaml:"venv_dir" json:"venv_dir"`
	Requirements  string        `koanf:"requirements" yaml:"requirements" json:"requirements"`
	Interpreters  []string      `koanf:"interpreters" yaml:"interpreters" json:"interpreters"`
	UpgradePip    bool          `koanf:"upgrade_pip" yaml:"upgrade_pip" json:"upgrade_pip"`
	Title         string        `koanf:"title" yaml:"title" json:"title"`
	Guidance      []string      `koanf:"guidance" yaml:"guidance" json:"guidance"`
	CleanPaths    []string      `koanf:"clean_paths" yaml:"clean_paths" json:"clean_paths"`
	WatchDebounce time.Duration `koanf:"watch_debounce" yaml:"watch_debounce" json:"watch_debounce"`
	History       bool          `koanf:"history" yaml:"history" json:"history"`
	StatePath     string        `koanf:"state_path" yaml:"state_path" json:"state_path"`
	Verbose       bool          `koanf:"verbose" yaml:"verbose" json:"verbose"`
	OutputFormat  string        `koanf:"output" yaml:"output" json:"output"`
}

// Default configuration values.
const (
	DefaultVenvDir       = bootstrap.DefaultVenvDir
	DefaultRequirements  = bootstrap.DefaultRequirements
	DefaultOutput        = "auto" // TTY=text, non-TTY=markdown
	DefaultStatePath     = state.DefaultPath
	DefaultWatchDebounce = 500 * time.Millisecond
	EnvPrefix            = "PYSETUP_"
)

// ConfigFileNames are the file names searched for in the project directory.
var ConfigFileNames = []string{"pysetup.yaml", "pysetup.yml"}

// DefaultCleanPaths are the generated outputs of the analysis activities.
func DefaultCleanPaths() []string {
	paths := make([]string, 0, 9)
	for i := 1; i <= 7; i++ {
		paths = append(paths, fmt.Sprintf("activity%d_images", i))
	}
	return append(paths, "covid_data_cleaned.csv", "covid_data_processed.csv")
}

// Default returns a configuration with every default applied and ProjectDir
// set to dir.
func Default(dir string) *Config {
	return &Config{
		ProjectDir:    dir,
		VenvDir:       DefaultVenvDir,
		Requirements:  DefaultRequirements,
		Interpreters:  append([]string(nil), bootstrap.DefaultInterpreters...),
		UpgradePip:    true,
		Title:         bootstrap.DefaultTitle,
		Guidance:      bootstrap.DefaultGuidance(),
		CleanPaths:    DefaultCleanPaths(),
		WatchDebounce: DefaultWatchDebounce,
		StatePath:     DefaultStatePath,
		OutputFormat:  DefaultOutput,
	}
}

// BootstrapOptions converts the configuration into bootstrap options.
func (c *Config) BootstrapOptions() bootstrap.Options {
	return bootstrap.Options{
		ProjectDir:     c.ProjectDir,
		VenvDir:        c.VenvDir,
		Requirements:   c.Requirements,
		Interpreters:   c.Interpreters,
		SkipPipUpgrade: !c.UpgradePip,
		Title:          c.Title,
		Guidance:       c.Guidance,
	}
}
