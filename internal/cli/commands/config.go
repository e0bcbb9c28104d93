package commands

import (
	"fmt"

	"github.com/leapstack-labs/pysetup/internal/cli/config"
	"github.com/leapstack-labs/pysetup/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigOutput is the effective configuration as printed by the config command.
type ConfigOutput struct {
	ConfigFile    string   `yaml:"-" json:"config_file,omitempty"`
	ProjectDir    string   `yaml:"project_dir" json:"project_dir"`
	VenvDir       string   `yaml:"venv_dir" json:"venv_dir"`
	Requirements  string   `yaml:"requirements" json:"requirements"`
	Interpreters  []string `yaml:"interpreters" json:"interpreters"`
	UpgradePip    bool     `yaml:"upgrade_pip" json:"upgrade_pip"`
	Title         string   `yaml:"title" json:"title"`
	Guidance      []string `yaml:"guidance" json:"guidance"`
	CleanPaths    []string `yaml:"clean_paths" json:"clean_paths"`
	WatchDebounce string   `yaml:"watch_debounce" json:"watch_debounce"`
	History       bool     `yaml:"history" json:"history"`
	StatePath     string   `yaml:"state_path" json:"state_path"`
	Verbose       bool     `yaml:"verbose" json:"verbose"`
	Output        string   `yaml:"output" json:"output"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, pysetup.yaml, PYSETUP_*
environment variables and flags have been applied.

The output is valid pysetup.yaml, so it can be saved as a starting point.`,
		Example: `  # Show the effective configuration
  pysetup config

  # Save it as the project configuration
  pysetup config > pysetup.yaml

  # As JSON
  pysetup config -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd)
		},
	}
}

func runConfig(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	out := newConfigOutput(cmdCtx.Cfg, config.GetConfigFileUsed())

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	if out.ConfigFile != "" {
		r.Printf("# config file: %s\n", out.ConfigFile)
	} else {
		r.Println("# no config file found, showing defaults")
	}

	enc := yaml.NewEncoder(r.Writer())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

func newConfigOutput(cfg *config.Config, file string) *ConfigOutput {
	return &ConfigOutput{
		ConfigFile:    file,
		ProjectDir:    cfg.ProjectDir,
		VenvDir:       cfg.VenvDir,
		Requirements:  cfg.Requirements,
		Interpreters:  cfg.Interpreters,
		UpgradePip:    cfg.UpgradePip,
		Title:         cfg.Title,
		Guidance:      cfg.Guidance,
		CleanPaths:    cfg.CleanPaths,
		WatchDebounce: cfg.WatchDebounce.String(),
		History:       cfg.History,
		StatePath:     cfg.StatePath,
		Verbose:       cfg.Verbose,
		Output:        cfg.OutputFormat,
	}
}
