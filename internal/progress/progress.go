// Package progress emits machine-readable lifecycle events for
// long-running operations. Events are printed as single lines in the
// form `COVE_STATUS {json}` so an external caller can pick them out of
// mixed human output.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Marker prefixes every status line on stdout.
const Marker = "COVE_STATUS "

// EnvVar enables reporting when set to a non-empty value.
const EnvVar = "COVE_STATUS"

// State is the lifecycle state carried by an event.
type State string

const (
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Event is one status update. Step/Total are optional and
// monotonically non-decreasing within an operation.
type Event struct {
	Namespace string `json:"namespace"`
	Code      string `json:"code"`
	State     State  `json:"state"`
	Message   string `json:"message"`
	Step      int    `json:"step,omitempty"`
	Total     int    `json:"total,omitempty"`
	TS        string `json:"ts,omitempty"`
}

// Reporter emits events for one logical operation. A disabled reporter
// is a no-op, so call sites never need to branch. Each operation gets
// exactly one terminal event: once Completed or Failed has been
// emitted, further events are dropped.
type Reporter struct {
	mu       sync.Mutex
	w        io.Writer
	enabled  bool
	terminal bool
	lastStep int
}

// New returns a reporter writing to w. Pass enabled=false for direct
// interactive use; every method becomes a no-op.
func New(w io.Writer, enabled bool) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{w: w, enabled: enabled}
}

// Enabled reports whether this reporter emits anything.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// EnabledFromEnv reports whether the caller requested status events via
// the COVE_STATUS environment variable.
func EnabledFromEnv() bool {
	return os.Getenv(EnvVar) != ""
}

// Emit sends a non-terminal event. Steps below the last seen step are
// raised to keep the sequence monotonic.
func (r *Reporter) Emit(code string, state State, message string, step, total int) {
	if state == StateCompleted || state == StateFailed {
		r.emitTerminal(code, state, message, step, total)
		return
	}
	r.emit(code, state, message, step, total)
}

// Step is shorthand for a running-state update.
func (r *Reporter) Step(code, message string, step, total int) {
	r.emit(code, StateRunning, message, step, total)
}

// Completed emits the successful terminal event for the operation.
func (r *Reporter) Completed(code, message string) {
	r.emitTerminal(code, StateCompleted, message, 0, 0)
}

// Failed emits the failing terminal event for the operation.
func (r *Reporter) Failed(code, message string) {
	r.emitTerminal(code, StateFailed, message, 0, 0)
}

func (r *Reporter) emit(code string, state State, message string, step, total int) {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal {
		return
	}
	r.write(code, state, message, step, total)
}

func (r *Reporter) emitTerminal(code string, state State, message string, step, total int) {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal {
		return
	}
	r.terminal = true
	r.write(code, state, message, step, total)
}

// write assumes r.mu is held.
func (r *Reporter) write(code string, state State, message string, step, total int) {
	if step < r.lastStep {
		step = r.lastStep
	}
	if step > 0 {
		r.lastStep = step
	}
	ev := Event{
		Namespace: "cove",
		Code:      code,
		State:     state,
		Message:   message,
		Step:      step,
		Total:     total,
		TS:        time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(r.w, "%s%s\n", Marker, data)
}

// ParseLine parses a status marker line. Returns nil for anything that
// is not a well-formed marker; callers treat unknown codes as
// informational and never fail on them.
func ParseLine(line string) *Event {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, Marker) {
		return nil
	}
	payload := strings.TrimSpace(line[len(Marker):])
	if payload == "" {
		return nil
	}
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil
	}
	if ev.Code == "" || ev.State == "" {
		return nil
	}
	return &ev
}
