package bootstrap

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per failure kind. All of them are fatal to a run.
var (
	ErrInterpreterNotFound = errors.New("python interpreter not found")
	ErrEnvironmentCreation = errors.New("virtual environment creation failed")
	ErrManifestMissing     = errors.New("requirements manifest not found")
	ErrDependencyInstall   = errors.New("dependency installation failed")
)

// StageError is returned when a stage aborts a run.
// It matches both its Kind sentinel and the underlying cause with errors.Is.
type StageError struct {
	Stage Stage
	Kind  error
	// Command is the failing command line, empty when no subprocess was involved.
	Command string
	// Output is the diagnostic output of the failing command.
	Output string
	Cause  error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Stage, e.Kind)
	if e.Command != "" {
		fmt.Fprintf(&b, " (%s)", e.Command)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// CommandError reports a subprocess that ran and exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
}

// IsFatal reports whether err is one of the bootstrap failure kinds.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInterpreterNotFound) ||
		errors.Is(err, ErrEnvironmentCreation) ||
		errors.Is(err, ErrManifestMissing) ||
		errors.Is(err, ErrDependencyInstall)
}
