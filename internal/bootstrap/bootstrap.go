package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultVenvDir      = "venv"
	DefaultRequirements = "requirements.txt"
	DefaultTitle        = "COVID-19 Analysis Project - Auto Setup"
	InstallHint         = "Please install Python 3.8+ from https://python.org"
	activityCount       = 7
)

// DefaultInterpreters are the interpreter commands tried, in order.
var DefaultInterpreters = []string{"python", "python3"}

// DefaultGuidance returns the completion guidance printed after a successful run.
func DefaultGuidance() []string {
	lines := []string{
		" Setup complete! You can re-run the analysis anytime with `npm run all`.",
		" Or you can run the specific activity with: ",
	}
	for i := 1; i <= activityCount; i++ {
		lines = append(lines, fmt.Sprintf("🔥 `npm run activity-%d`", i))
	}
	return lines
}

// Reporter receives the console messages of a run.
type Reporter interface {
	Banner(title string)
	Status(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
	// Diagnostic receives raw output of a failed command.
	Diagnostic(text string)
	Println(msg string)
}

// Options configures a Bootstrapper.
type Options struct {
	// ProjectDir is the directory commands run in. Relative paths below are
	// resolved against it.
	ProjectDir   string
	VenvDir      string
	Requirements string
	// Interpreters are tried in order; the first answering --version wins.
	Interpreters   []string
	SkipPipUpgrade bool
	// GOOS selects the in-environment interpreter layout. Defaults to runtime.GOOS.
	GOOS     string
	Title    string
	Guidance []string
}

func (o Options) withDefaults() Options {
	if o.VenvDir == "" {
		o.VenvDir = DefaultVenvDir
	}
	if o.Requirements == "" {
		o.Requirements = DefaultRequirements
	}
	if len(o.Interpreters) == 0 {
		o.Interpreters = DefaultInterpreters
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Guidance == nil {
		o.Guidance = DefaultGuidance()
	}
	return o
}

// Bootstrapper runs the setup pipeline for one project.
type Bootstrapper struct {
	opts     Options
	runner   Runner
	reporter Reporter
	logger   *slog.Logger
}

// New creates a Bootstrapper. A nil logger discards log output.
func New(opts Options, runner Runner, reporter Reporter, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bootstrapper{
		opts:     opts.withDefaults(),
		runner:   runner,
		reporter: reporter,
		logger:   logger,
	}
}

// Run executes every stage in order and stops at the first failure.
// The returned report is never nil.
func (b *Bootstrapper) Run(ctx context.Context) (*Report, error) {
	report := NewReport(uuid.NewString())
	defer report.finish()

	log := b.logger.With("run_id", report.RunID)
	log.Info("bootstrap started", "project_dir", b.opts.ProjectDir)

	b.reporter.Banner(b.opts.Title)

	var interpreter string
	err := report.track(StageDetectInterpreter, func() (string, error) {
		var err error
		interpreter, err = b.DetectInterpreter(ctx)
		return interpreter, err
	})
	if err != nil {
		log.Info("bootstrap aborted", "stage", StageDetectInterpreter, "error", err)
		return report, err
	}
	report.Interpreter = interpreter

	err = report.track(StageEnsureEnvironment, func() (string, error) {
		created, err := b.EnsureEnvironment(ctx, interpreter)
		report.EnvironmentCreated = created
		if created {
			return "created", err
		}
		return "", err
	})
	if err != nil {
		log.Info("bootstrap aborted", "stage", StageEnsureEnvironment, "error", err)
		return report, err
	}

	var envPython string
	_ = report.track(StageResolvePath, func() (string, error) {
		envPython = b.EnvironmentPython()
		return envPython, nil
	})
	report.EnvironmentPython = envPython

	err = report.track(StageInstallDependencies, func() (string, error) {
		return "", b.InstallDependencies(ctx, envPython)
	})
	if err != nil {
		log.Info("bootstrap aborted", "stage", StageInstallDependencies, "error", err)
		return report, err
	}

	_ = report.track(StageReportCompletion, func() (string, error) {
		b.ReportCompletion()
		return "", nil
	})

	log.Info("bootstrap finished", "interpreter", interpreter, "environment_python", envPython)
	return report, nil
}

// DetectInterpreter returns the first configured interpreter that answers
// --version. Failed probes are not reported; only exhausting every candidate is.
func (b *Bootstrapper) DetectInterpreter(ctx context.Context) (string, error) {
	b.reporter.Status("Checking for Python...")

	var lastErr error
	for _, candidate := range b.opts.Interpreters {
		res, err := b.runner.Run(ctx, b.command(candidate, "--version"))
		if err != nil {
			b.logger.Debug("interpreter probe failed", "candidate", candidate, "error", err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		b.logger.Debug("interpreter probe succeeded", "candidate", candidate, "version", VersionString(res))
		b.reporter.Success(displayName(candidate) + " found.")
		return candidate, nil
	}

	b.reporter.Error("Python is not installed or not in PATH.")
	b.reporter.Println(InstallHint)
	return "", &StageError{
		Stage: StageDetectInterpreter,
		Kind:  ErrInterpreterNotFound,
		Cause: lastErr,
	}
}

// EnsureEnvironment creates the virtual environment unless its directory
// already exists. It reports whether an environment was created.
func (b *Bootstrapper) EnsureEnvironment(ctx context.Context, interpreter string) (bool, error) {
	b.reporter.Status("Creating virtual environment...")

	if exists(b.path(b.opts.VenvDir)) {
		b.reporter.Status("Virtual environment already exists.")
		return false, nil
	}

	if err := b.exec(ctx, StageEnsureEnvironment, ErrEnvironmentCreation,
		b.command(interpreter, "-m", "venv", b.opts.VenvDir)); err != nil {
		b.reporter.Error("Failed to create virtual environment.")
		return false, err
	}

	b.reporter.Success("Virtual environment created.")
	return true, nil
}

// EnvironmentPython returns the path of the interpreter inside the virtual environment.
func (b *Bootstrapper) EnvironmentPython() string {
	return ResolveEnvironmentPython(b.path(b.opts.VenvDir), b.opts.GOOS)
}

// InstallDependencies upgrades pip and installs the requirements manifest
// using the environment's interpreter. The manifest must exist before any
// pip command is issued.
func (b *Bootstrapper) InstallDependencies(ctx context.Context, envPython string) error {
	b.reporter.Status("Installing dependencies...")

	manifest := b.opts.Requirements
	if !exists(b.path(manifest)) {
		b.reporter.Error(manifest + " not found.")
		return &StageError{
			Stage: StageInstallDependencies,
			Kind:  ErrManifestMissing,
			Cause: fmt.Errorf("%s: %w", b.path(manifest), os.ErrNotExist),
		}
	}

	if !b.opts.SkipPipUpgrade {
		b.reporter.Status("Upgrading pip...")
		if err := b.exec(ctx, StageInstallDependencies, ErrDependencyInstall,
			b.command(envPython, "-m", "pip", "install", "--upgrade", "pip")); err != nil {
			b.reporter.Error("Failed to install dependencies.")
			return err
		}
	}

	b.reporter.Status("Installing from " + manifest + "...")
	if err := b.exec(ctx, StageInstallDependencies, ErrDependencyInstall,
		b.command(envPython, "-m", "pip", "install", "-r", manifest)); err != nil {
		b.reporter.Error("Failed to install dependencies.")
		return err
	}

	b.reporter.Success("✅ Dependencies installed successfully.")
	return nil
}

// ReportCompletion prints the follow-up guidance.
func (b *Bootstrapper) ReportCompletion() {
	for _, line := range b.opts.Guidance {
		b.reporter.Success(line)
	}
}

// exec runs a command and turns a failure into a StageError after reporting
// the command and its diagnostic output.
func (b *Bootstrapper) exec(ctx context.Context, stage Stage, kind error, cmd Command) error {
	b.logger.Debug("running command", "stage", stage, "command", cmd.String())

	res, err := b.runner.Run(ctx, cmd)
	if err == nil {
		return nil
	}

	output := diagnosticOutput(res, err)
	b.reporter.Error("Failed to execute: " + cmd.String())
	if output != "" {
		b.reporter.Diagnostic(output)
	}
	return &StageError{
		Stage:   stage,
		Kind:    kind,
		Command: cmd.String(),
		Output:  output,
		Cause:   err,
	}
}

func (b *Bootstrapper) command(name string, args ...string) Command {
	return Command{Name: name, Args: args, Dir: b.opts.ProjectDir}
}

// path resolves p against the project directory.
func (b *Bootstrapper) path(p string) string {
	if p == "" || filepath.IsAbs(p) || b.opts.ProjectDir == "" {
		return p
	}
	return filepath.Join(b.opts.ProjectDir, p)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// displayName turns an interpreter command into the name used in messages:
// "python3" -> "Python3".
func displayName(candidate string) string {
	name := strings.TrimSuffix(filepath.Base(candidate), ".exe")
	if name == "" {
		return candidate
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// VersionString extracts the version banner from a --version probe.
// Older interpreters print it on stderr.
func VersionString(res *Result) string {
	if res == nil {
		return ""
	}
	if s := strings.TrimSpace(string(res.Stdout)); s != "" {
		return s
	}
	return strings.TrimSpace(string(res.Stderr))
}
