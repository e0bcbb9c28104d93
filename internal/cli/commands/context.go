package commands

import (
	"log/slog"
	"os"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/leapstack-labs/pysetup/internal/cli/config"
	"github.com/leapstack-labs/pysetup/internal/cli/output"
	"github.com/spf13/cobra"
)

// newRunner creates the command runner used by every command.
// Tests replace it to avoid spawning real interpreters.
var newRunner = func() bootstrap.Runner {
	return bootstrap.ExecRunner{}
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Runner   bootstrap.Runner
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Runner:   newRunner(),
	}
}

// NewBootstrapper creates a bootstrapper reporting through rep.
func (c *CommandContext) NewBootstrapper(rep bootstrap.Reporter) *bootstrap.Bootstrapper {
	return bootstrap.New(c.Cfg.BootstrapOptions(), c.Runner, rep, c.Logger)
}

// getConfig returns the current configuration.
// Commands executed outside the root command (tests, embedding) fall back to
// loading from the environment and working directory.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	cwd, _ := os.Getwd()
	return config.Default(cwd)
}
