package workflow

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Output is the result a workflow handler returns to its caller.
type Output struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Run is one execution instance of a workflow definition. It is
// created at dispatch and mutated only by the engine.
type Run struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Trigger    Trigger   `json:"trigger"`
	Status     Status    `json:"status"`
	Output     *Output   `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StepResult is the memoized output of a named step within a run.
// A (RunID, StepName) pair completes at most once; re-dispatch of a
// partially completed run replays stored results instead of
// recomputing them.
type StepResult struct {
	RunID       string          `json:"run_id"`
	StepName    string          `json:"step_name"`
	Output      json.RawMessage `json:"output"`
	Attempts    int             `json:"attempts"`
	CompletedAt time.Time       `json:"completed_at"`
}
