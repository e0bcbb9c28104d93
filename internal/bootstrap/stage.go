package bootstrap

import "fmt"

// Stage identifies one step of a bootstrap run.
type Stage int

// Stages in execution order.
const (
	StageDetectInterpreter Stage = iota
	StageEnsureEnvironment
	StageResolvePath
	StageInstallDependencies
	StageReportCompletion
)

// Stages returns all stages in the order they run.
func Stages() []Stage {
	return []Stage{
		StageDetectInterpreter,
		StageEnsureEnvironment,
		StageResolvePath,
		StageInstallDependencies,
		StageReportCompletion,
	}
}

func (s Stage) String() string {
	switch s {
	case StageDetectInterpreter:
		return "detect_interpreter"
	case StageEnsureEnvironment:
		return "ensure_environment"
	case StageResolvePath:
		return "resolve_path"
	case StageInstallDependencies:
		return "install_dependencies"
	case StageReportCompletion:
		return "report_completion"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so stages render by name in JSON.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage returns the stage with the given name.
func ParseStage(name string) (Stage, error) {
	for _, s := range Stages() {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// Status is the lifecycle state of a stage within a single run.
type Status string

// Stage statuses. Aborted is terminal and only reachable from Running.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusAborted   Status = "aborted"
)

// validTransitions lists the allowed status changes for a stage.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusSucceeded, StatusAborted},
}

// canTransition reports whether a stage may move from one status to another.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
