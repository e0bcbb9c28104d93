package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pysetup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()

	cfg, err := LoadConfig("", newFlags(t, "--project-dir", dir))
	require.NoError(t, err)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, cfg.ProjectDir)
	assert.Equal(t, "venv", cfg.VenvDir)
	assert.Equal(t, "requirements.txt", cfg.Requirements)
	assert.Equal(t, []string{"python", "python3"}, cfg.Interpreters)
	assert.True(t, cfg.UpgradePip)
	assert.Equal(t, bootstrap.DefaultTitle, cfg.Title)
	assert.Equal(t, bootstrap.DefaultGuidance(), cfg.Guidance)
	assert.Len(t, cfg.CleanPaths, 9)
	assert.Equal(t, DefaultWatchDebounce, cfg.WatchDebounce)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, `
venv_dir: .venv
requirements: requirements-dev.txt
interpreters:
  - python3.12
  - python3
upgrade_pip: false
watch_debounce: 2s
clean_paths:
  - build
`)

	cfg, err := LoadConfig("", newFlags(t, "--project-dir", dir))
	require.NoError(t, err)

	assert.Equal(t, ".venv", cfg.VenvDir)
	assert.Equal(t, "requirements-dev.txt", cfg.Requirements)
	assert.Equal(t, []string{"python3.12", "python3"}, cfg.Interpreters)
	assert.False(t, cfg.UpgradePip)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, []string{"build"}, cfg.CleanPaths)
	assert.Equal(t, filepath.Join(dir, "pysetup.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_ExplicitFileAnchorsProject(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, "venv_dir: env\n")

	cfg, err := LoadConfig(path, newFlags(t))
	require.NoError(t, err)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, cfg.ProjectDir)
	assert.Equal(t, "env", cfg.VenvDir)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "venv_dir: .venv\ninterpreters: [python]\n")

	t.Setenv("PYSETUP_VENV_DIR", "envvenv")
	t.Setenv("PYSETUP_INTERPRETERS", "python3, py")
	t.Setenv("PYSETUP_UPGRADE_PIP", "false")
	t.Setenv("PYSETUP_WATCH_DEBOUNCE", "250ms")

	cfg, err := LoadConfig("", newFlags(t, "--project-dir", dir))
	require.NoError(t, err)

	assert.Equal(t, "envvenv", cfg.VenvDir)
	assert.Equal(t, []string{"python3", "py"}, cfg.Interpreters)
	assert.False(t, cfg.UpgradePip)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce)
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "venv_dir: .venv\noutput: text\n")
	t.Setenv("PYSETUP_VENV_DIR", "envvenv")

	cfg, err := LoadConfig("", newFlags(t,
		"--project-dir", dir,
		"--venv-dir", "flagvenv",
		"--requirements", "reqs.txt",
		"--interpreter", "python3.11",
		"--no-pip-upgrade",
		"-o", "json",
		"-v",
	))
	require.NoError(t, err)

	assert.Equal(t, "flagvenv", cfg.VenvDir)
	assert.Equal(t, "reqs.txt", cfg.Requirements)
	assert.Equal(t, []string{"python3.11"}, cfg.Interpreters)
	assert.False(t, cfg.UpgradePip)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_UnsetFlagsDoNotOverride(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "venv_dir: .venv\nupgrade_pip: false\n")

	cfg, err := LoadConfig("", newFlags(t, "--project-dir", dir))
	require.NoError(t, err)

	assert.Equal(t, ".venv", cfg.VenvDir)
	assert.False(t, cfg.UpgradePip)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		errSubstr string
	}{
		{name: "unknown output", yaml: "output: yaml\n", errSubstr: "unknown output format"},
		{name: "empty venv", yaml: "venv_dir: \"\"\n", errSubstr: "venv_dir is required"},
		{name: "no interpreters", yaml: "interpreters: []\n", errSubstr: "interpreters must list"},
		{name: "bad yaml", yaml: "venv_dir: [\n", errSubstr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			writeConfig(t, dir, tt.yaml)

			_, err := LoadConfig("", newFlags(t, "--project-dir", dir))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestBootstrapOptions(t *testing.T) {
	cfg := Default("/srv/app")
	cfg.UpgradePip = false

	opts := cfg.BootstrapOptions()
	assert.Equal(t, "/srv/app", opts.ProjectDir)
	assert.Equal(t, "venv", opts.VenvDir)
	assert.True(t, opts.SkipPipUpgrade)
	assert.Equal(t, []string{"python", "python3"}, opts.Interpreters)
}

func TestValidateProjectDir(t *testing.T) {
	cfg := Default(filepath.Join(t.TempDir(), "missing"))
	err := cfg.ValidateProjectDir()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	cfg.ProjectDir = t.TempDir()
	assert.NoError(t, cfg.ValidateProjectDir())
}

func TestResolve(t *testing.T) {
	cfg := Default("/srv/app")
	assert.Equal(t, filepath.Join("/srv/app", "venv"), cfg.Resolve("venv"))
	assert.Equal(t, "/abs/x", cfg.Resolve("/abs/x"))
	assert.Empty(t, cfg.Resolve(""))
}

func TestDefaultCleanPaths(t *testing.T) {
	paths := DefaultCleanPaths()
	assert.Equal(t, "activity1_images", paths[0])
	assert.Equal(t, "activity7_images", paths[6])
	assert.Contains(t, paths, "covid_data_cleaned.csv")
	assert.Contains(t, paths, "covid_data_processed.csv")
}

func TestLoadConfig_History(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()

	cfg, err := LoadConfig("", newFlags(t, "--project-dir", dir))
	require.NoError(t, err)
	assert.False(t, cfg.History, "history is opt-in")
	assert.Equal(t, DefaultStatePath, cfg.StatePath)

	ResetConfig()
	writeConfig(t, dir, "state_path: var/runs.db\n")
	cfg, err = LoadConfig("", newFlags(t, "--project-dir", dir, "--history"))
	require.NoError(t, err)
	assert.True(t, cfg.History)
	assert.Equal(t, "var/runs.db", cfg.StatePath)

	ResetConfig()
	writeConfig(t, dir, "history: true\nstate_path: \"\"\n")
	_, err = LoadConfig("", newFlags(t, "--project-dir", dir))
	assert.ErrorContains(t, err, "state_path is required")
}
