package agent

import (
	"encoding/json"
	"strings"
)

// ArtifactPath is the conventional location where the agent program
// writes its structured outcome inside the workspace. The engine only
// detects and relays the artifact; it never writes one.
const ArtifactPath = "/workspace/.cove/result.json"

// Status is the observable state of an environment's agent session.
type Status string

const (
	StatusAbsent        Status = "absent"
	StatusRunning       Status = "running"
	StatusCompleted     Status = "completed"
	StatusBlocked       Status = "blocked"
	StatusFailed        Status = "failed"
	StatusIndeterminate Status = "indeterminate"
)

// Terminal reports whether the status ends a task (stop is separate:
// it returns the session to absent).
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusBlocked, StatusFailed, StatusIndeterminate:
		return true
	}
	return false
}

// Result is the parsed outcome artifact.
type Result struct {
	Outcome string `json:"outcome"`
	Summary string `json:"summary,omitempty"`
}

// State is what Status() reports: the machine state plus, once a task
// finished, the parsed artifact. Raw carries the unparsed artifact
// text for the indeterminate case.
type State struct {
	Status Status
	Result *Result
	Raw    string
}

// parseArtifact maps raw artifact bytes to a state. A malformed or
// unrecognized artifact is indeterminate, never silently a success or
// a failure.
func parseArtifact(raw string) State {
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return State{Status: StatusIndeterminate, Raw: raw}
	}
	switch strings.ToLower(res.Outcome) {
	case "completed", "success":
		return State{Status: StatusCompleted, Result: &res}
	case "blocked":
		return State{Status: StatusBlocked, Result: &res}
	case "failed", "error":
		return State{Status: StatusFailed, Result: &res}
	default:
		return State{Status: StatusIndeterminate, Result: &res, Raw: raw}
	}
}
