package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps flag names whose config key differs from the snake_case form.
var flagKeys = map[string]string{
	"no-pip-upgrade": "upgrade_pip",
	"interpreter":    "interpreters",
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// inferProjectDir determines the project directory.
// Priority:
//  1. Explicit --project-dir flag
//  2. PYSETUP_PROJECT_DIR
//  3. Directory of an explicit --config file
//  4. Current working directory
func inferProjectDir(cfgFile string, flags *pflag.FlagSet) string {
	dir := ""
	if flags != nil && flags.Changed("project-dir") {
		dir, _ = flags.GetString("project-dir")
	}
	if dir == "" {
		dir = os.Getenv(EnvPrefix + "PROJECT_DIR")
	}
	if dir == "" && cfgFile != "" {
		dir = filepath.Dir(cfgFile)
	}
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

// findConfigFile returns the config file to use, or "" when there is none.
func findConfigFile(explicit, projectDir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(projectDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// defaultsMap flattens Default into the form koanf's confmap provider expects.
func defaultsMap() map[string]interface{} {
	d := Default("")
	return map[string]interface{}{
		"venv_dir":       d.VenvDir,
		"requirements":   d.Requirements,
		"interpreters":   d.Interpreters,
		"upgrade_pip":    d.UpgradePip,
		"title":          d.Title,
		"guidance":       d.Guidance,
		"clean_paths":    d.CleanPaths,
		"watch_debounce": d.WatchDebounce.String(),
		"history":        d.History,
		"state_path":     d.StatePath,
		"verbose":        d.Verbose,
		"output":         d.OutputFormat,
	}
}

// envKey transforms PYSETUP_VENV_DIR into venv_dir.
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// flagValue maps a set flag onto its config key. Unset flags and flags
// without a config key are skipped.
func flagValue(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed || f.Name == "config" {
			return "", nil
		}
		if f.Name == "no-pip-upgrade" {
			skip, _ := flags.GetBool(f.Name)
			return flagKeys[f.Name], !skip
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if mapped, ok := flagKeys[f.Name]; ok {
			key = mapped
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// LoadConfig loads configuration from defaults, file, environment and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	projectDir := inferProjectDir(cfgFile, flags)

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile, projectDir)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables (PYSETUP_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagValue(flags)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode. Env vars arrive as strings, so lists are comma separated
	// and durations use time.ParseDuration syntax.
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Anchor the project directory. A relative project_dir is taken
	// relative to the working directory, like the flag.
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = projectDir
	}
	if abs, err := filepath.Abs(cfg.ProjectDir); err == nil {
		cfg.ProjectDir = abs
	}
	cfg.Interpreters = trimAll(cfg.Interpreters)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}
