package config

import "github.com/spf13/pflag"

// RegisterFlags adds the configuration flags to fs. The root command
// registers them as persistent flags so every subcommand shares them.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: ./pysetup.yaml)")
	fs.StringP("project-dir", "C", "", "Project directory (default: current directory)")
	fs.String("venv-dir", "", "Virtual environment directory, relative to the project")
	fs.StringP("requirements", "r", "", "Requirements manifest, relative to the project")
	fs.StringSlice("interpreter", nil, "Interpreter commands to try, in order (default: python,python3)")
	fs.Bool("no-pip-upgrade", false, "Skip upgrading pip before installing requirements")
	fs.Bool("history", false, "Record setup runs in the project's history database")
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
}
