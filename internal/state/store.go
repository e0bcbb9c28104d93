// Package state records bootstrap runs in a per-project SQLite database so
// earlier setups can be inspected with "pysetup history".
package state

import (
	"context"
	"time"

	"github.com/leapstack-labs/pysetup/internal/bootstrap"
)

// DefaultPath is the history database location, relative to the project.
const DefaultPath = ".pysetup/state.db"

// RunStatus is the overall outcome of a recorded run.
type RunStatus string

// Run statuses.
const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is a recorded bootstrap run.
type Run struct {
	ID                 string                  `json:"id"`
	ProjectDir         string                  `json:"project_dir"`
	Interpreter        string                  `json:"interpreter,omitempty"`
	EnvironmentPython  string                  `json:"environment_python,omitempty"`
	EnvironmentCreated bool                    `json:"environment_created"`
	Status             RunStatus               `json:"status"`
	Error              string                  `json:"error,omitempty"`
	StartedAt          time.Time               `json:"started_at"`
	Duration           string                  `json:"duration,omitempty"`
	Stages             []bootstrap.StageResult `json:"stages,omitempty"`
}

// Store persists run history.
type Store interface {
	RecordRun(ctx context.Context, projectDir string, report *bootstrap.Report) error
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	Close() error
}

// RunFromReport converts a bootstrap report into a history entry.
func RunFromReport(projectDir string, report *bootstrap.Report) *Run {
	status := RunStatusSucceeded
	if !report.Succeeded() {
		status = RunStatusFailed
	}
	return &Run{
		ID:                 report.RunID,
		ProjectDir:         projectDir,
		Interpreter:        report.Interpreter,
		EnvironmentPython:  report.EnvironmentPython,
		EnvironmentCreated: report.EnvironmentCreated,
		Status:             status,
		Error:              report.Error,
		StartedAt:          report.StartedAt.UTC(),
		Duration:           report.Duration,
		Stages:             append([]bootstrap.StageResult(nil), report.Stages...),
	}
}
