package bootstrap

import (
	"fmt"
	"time"
)

// StageResult records the outcome of one stage.
type StageResult struct {
	Stage  Stage  `json:"stage"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report summarizes a bootstrap run. It is what the JSON output mode prints.
type Report struct {
	RunID              string        `json:"run_id"`
	Interpreter        string        `json:"interpreter,omitempty"`
	EnvironmentPython  string        `json:"environment_python,omitempty"`
	EnvironmentCreated bool          `json:"environment_created"`
	Stages             []StageResult `json:"stages"`
	Error              string        `json:"error,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           string        `json:"duration"`
}

// NewReport creates a report with every stage pending.
func NewReport(runID string) *Report {
	r := &Report{RunID: runID, StartedAt: time.Now()}
	for _, s := range Stages() {
		r.Stages = append(r.Stages, StageResult{Stage: s, Status: StatusPending})
	}
	return r
}

// StatusOf returns the current status of a stage.
func (r *Report) StatusOf(stage Stage) Status {
	for _, sr := range r.Stages {
		if sr.Stage == stage {
			return sr.Status
		}
	}
	return StatusPending
}

// Succeeded reports whether every stage finished successfully.
func (r *Report) Succeeded() bool {
	for _, sr := range r.Stages {
		if sr.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

func (r *Report) set(stage Stage, to Status, detail string) error {
	for i := range r.Stages {
		if r.Stages[i].Stage != stage {
			continue
		}
		if !canTransition(r.Stages[i].Status, to) {
			return fmt.Errorf("invalid status transition for %s: %s -> %s", stage, r.Stages[i].Status, to)
		}
		r.Stages[i].Status = to
		if detail != "" {
			r.Stages[i].Detail = detail
		}
		return nil
	}
	return fmt.Errorf("unknown stage %s", stage)
}

// track moves a stage through running and into its terminal status.
func (r *Report) track(stage Stage, fn func() (string, error)) error {
	if err := r.set(stage, StatusRunning, ""); err != nil {
		return err
	}
	detail, err := fn()
	if err != nil {
		_ = r.set(stage, StatusAborted, detail)
		r.Error = err.Error()
		return err
	}
	return r.set(stage, StatusSucceeded, detail)
}

func (r *Report) finish() {
	r.Duration = time.Since(r.StartedAt).Round(time.Millisecond).String()
}
