package commands

import (
	"github.com/leapstack-labs/pysetup/internal/bootstrap"
	"github.com/leapstack-labs/pysetup/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the virtual environment and install dependencies",
		Long: `Prepare the project checkout for the analysis.

Steps, in order, stopping at the first failure:
  1. Find a Python interpreter (python, then python3)
  2. Create the virtual environment unless it already exists
  3. Upgrade pip inside the environment
  4. Install the packages listed in requirements.txt

Running setup again reuses the existing environment.`,
		Example: `  # Set up the project in the current directory
  pysetup setup

  # Use a different environment directory and manifest
  pysetup setup --venv-dir .venv --requirements requirements-dev.txt

  # Machine-readable report for CI
  pysetup setup -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunSetup(cmd)
		},
	}
}

// RunSetup runs the bootstrap pipeline for the configured project.
// It is also the root command's default action.
func RunSetup(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.Cfg.ValidateProjectDir(); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	jsonMode := r.EffectiveMode() == output.ModeJSON

	var rep bootstrap.Reporter = r
	if jsonMode {
		rep = r.Quiet()
	}

	report, err := cmdCtx.NewBootstrapper(rep).Run(cmd.Context())
	if cmdCtx.Cfg.History {
		// History is best effort and never changes the outcome of setup.
		if herr := recordRun(cmd.Context(), cmdCtx, report); herr != nil {
			cmdCtx.Logger.Warn("failed to record run", "error", herr)
		}
	}
	if jsonMode {
		if jerr := r.JSON(report); jerr != nil {
			return jerr
		}
	}
	return err
}
