package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// Handler is the body of a workflow definition. It receives the run
// context and returns the run output; any non-nil error marks the run
// failed (no automatic whole-run retry).
type Handler func(ctx context.Context, wc *Context) (Output, error)

// Definition binds a workflow ID to its triggers and handler. A
// definition may be event-triggered, cron-triggered, or both; either
// trigger starts the same handler.
type Definition struct {
	ID      string
	Event   string // event name that dispatches this workflow, "" for none
	Cron    string // cron spec (5-field, server-local time), "" for none
	Handler Handler
}

func (d *Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("workflow definition requires an ID")
	}
	if d.Handler == nil {
		return fmt.Errorf("workflow %s requires a handler", d.ID)
	}
	if d.Event == "" && d.Cron == "" {
		return fmt.Errorf("workflow %s requires an event or cron trigger", d.ID)
	}
	return nil
}

// Context is passed to a workflow handler for the duration of one run.
// It carries the trigger snapshot and routes step execution through
// the step executor so completed steps are memoized.
type Context struct {
	RunID   string
	Trigger Trigger
	Log     zerolog.Logger

	exec *Executor
}

// NewContext builds a run context. The engine uses this for every run;
// tests use it to drive handlers directly.
func NewContext(runID string, trigger Trigger, exec *Executor, log zerolog.Logger) *Context {
	return &Context{
		RunID:   runID,
		Trigger: trigger,
		Log:     log.With().Str("run_id", runID).Logger(),
		exec:    exec,
	}
}

// RunStep executes a named step through the step executor, returning
// the raw memoized payload.
func (wc *Context) RunStep(ctx context.Context, name string, fn StepFunc) (json.RawMessage, error) {
	return wc.exec.Execute(ctx, wc.RunID, name, fn)
}

// Step executes a named step and decodes its (possibly memoized)
// result into a typed value.
func Step[T any](ctx context.Context, wc *Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	raw, err := wc.RunStep(ctx, name, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode result of step %q: %w", name, err)
	}

	return out, nil
}
