// File: internal/agent/models.go
package agent

import (
	"fmt"

	"github.com/xkilldash9x/phonepilot-cli/internal/directive"
)

// State is the lifecycle phase of a session. It is owned exclusively by the
// session; external callers influence it only through Run, Stop and Reset.
type State string

const (
	StateIdle     State = "IDLE"     // No task in flight; Run is accepted.
	StateRunning  State = "RUNNING"  // The step loop is executing.
	StateStopping State = "STOPPING" // Stop requested; the loop winds down at the next boundary.
	StateFinished State = "FINISHED" // The model emitted finish or the step budget ran out.
	StateErrored  State = "ERRORED"  // The loop died on an unrecoverable failure.
)

// StepEvent reports one round of the step loop, in order. Action is nil when
// the round failed before producing a dispatchable action (parse failure,
// observation failure).
type StepEvent struct {
	ID       string            `json:"id"`
	Step     int               `json:"step"`
	Thinking string            `json:"thinking"`
	Action   *directive.Action `json:"action,omitempty"`
	Finished bool              `json:"finished"`
	Message  string            `json:"message,omitempty"`
}

// StateError reports an operation rejected because of the session's current
// state: a second Run against a busy session, Reset while Running, and the
// like. These are rejected synchronously, never queued.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Op, e.State)
}
