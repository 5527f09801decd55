package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chanatinart02/next-stock-tracker-app/internal/scheduler"
)

// ErrNoWorkflow is returned when a dispatched trigger matches no
// registered definition.
var ErrNoWorkflow = errors.New("no workflow registered for trigger")

// Notifier is the operator/monitoring channel for run-fatal failures.
// The engine only produces the typed failure; surfacing it (logs,
// alerts) belongs to the implementation.
type Notifier interface {
	RunFailed(runID, workflowID string, err error)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// RunFailed implements Notifier.
func (NopNotifier) RunFailed(string, string, error) {}

// Config holds engine dependencies. All collaborators are injected
// explicitly; the engine owns no hidden global state.
type Config struct {
	Runs      RunStore
	Steps     StepStore
	Scheduler *scheduler.Scheduler // optional, required only for cron-triggered definitions
	Notifier  Notifier
	Retry     RetryPolicy // zero value selects DefaultRetryPolicy
	Log       zerolog.Logger
}

// Engine owns workflow definitions and dispatch. Steps within one run
// execute strictly in order; independent runs execute concurrently
// with no shared mutable state beyond the step store.
type Engine struct {
	mu      sync.RWMutex
	defs    map[string]*Definition
	byEvent map[string][]*Definition

	runs     RunStore
	exec     *Executor
	sched    *scheduler.Scheduler
	notifier Notifier
	log      zerolog.Logger

	wg sync.WaitGroup
}

// New creates a workflow engine.
func New(cfg Config) *Engine {
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	log := cfg.Log.With().Str("component", "workflow_engine").Logger()

	return &Engine{
		defs:     make(map[string]*Definition),
		byEvent:  make(map[string][]*Definition),
		runs:     cfg.Runs,
		exec:     NewExecutor(cfg.Steps, retry, cfg.Log),
		sched:    cfg.Scheduler,
		notifier: notifier,
		log:      log,
	}
}

// Register adds a definition and wires its triggers. Cron-triggered
// definitions are registered with the scheduler immediately.
func (e *Engine) Register(def *Definition) error {
	if err := def.validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if _, exists := e.defs[def.ID]; exists {
		e.mu.Unlock()
		return fmt.Errorf("workflow %s already registered", def.ID)
	}
	e.defs[def.ID] = def
	if def.Event != "" {
		e.byEvent[def.Event] = append(e.byEvent[def.Event], def)
	}
	e.mu.Unlock()

	if def.Cron != "" {
		if e.sched == nil {
			return fmt.Errorf("workflow %s has a cron trigger but no scheduler is configured", def.ID)
		}
		if err := e.sched.AddJob(def.Cron, &cronDispatch{engine: e, def: def}); err != nil {
			return fmt.Errorf("failed to schedule workflow %s: %w", def.ID, err)
		}
	}

	e.log.Info().
		Str("workflow", def.ID).
		Str("event", def.Event).
		Str("cron", def.Cron).
		Msg("Workflow registered")

	return nil
}

// Dispatch matches a trigger against registered definitions and starts
// one run per match. Dispatch is fire-and-forget: the returned run IDs
// identify runs that execute asynchronously, and run failures never
// propagate back to the caller.
func (e *Engine) Dispatch(trigger Trigger) ([]string, error) {
	defs := e.match(trigger)
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoWorkflow, describeTrigger(trigger))
	}

	runIDs := make([]string, 0, len(defs))
	for _, def := range defs {
		runIDs = append(runIDs, e.startRun(def, trigger))
	}

	return runIDs, nil
}

// Run returns a run by ID, or nil if unknown.
func (e *Engine) Run(id string) (*Run, error) {
	return e.runs.Get(id)
}

// Retry re-executes an existing run. Steps that already completed are
// replayed from the memoization store, not recomputed, so retrying a
// partially completed run produces no duplicate side effects.
func (e *Engine) Retry(runID string) error {
	run, err := e.runs.Get(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	e.mu.RLock()
	def := e.defs[run.WorkflowID]
	e.mu.RUnlock()
	if def == nil {
		return fmt.Errorf("workflow %s is not registered", run.WorkflowID)
	}

	run.Status = StatusRunning
	run.Error = ""
	run.UpdatedAt = time.Now().UTC()
	if err := e.runs.Update(run); err != nil {
		return err
	}

	e.wg.Add(1)
	go e.execute(def, run)

	return nil
}

// ResumeInFlight re-dispatches runs left in the running state, e.g.
// after a process restart mid-run. Completed steps replay from the
// store. Returns the number of resumed runs.
func (e *Engine) ResumeInFlight() (int, error) {
	running, err := e.runs.ListByStatus(StatusRunning)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, run := range running {
		e.mu.RLock()
		def := e.defs[run.WorkflowID]
		e.mu.RUnlock()
		if def == nil {
			e.log.Warn().
				Str("run_id", run.ID).
				Str("workflow", run.WorkflowID).
				Msg("Cannot resume run, workflow not registered")
			continue
		}

		e.log.Info().
			Str("run_id", run.ID).
			Str("workflow", run.WorkflowID).
			Msg("Resuming in-flight run")

		e.wg.Add(1)
		go e.execute(def, run)
		resumed++
	}

	return resumed, nil
}

// Stop waits for in-flight runs to finish or the context to expire.
func (e *Engine) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) match(trigger Trigger) []*Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch trigger.Kind {
	case TriggerEvent:
		return e.byEvent[trigger.Event]
	case TriggerSchedule:
		var defs []*Definition
		for _, def := range e.defs {
			if def.Cron != "" && def.Cron == trigger.Cron {
				defs = append(defs, def)
			}
		}
		return defs
	default:
		return nil
	}
}

func (e *Engine) startRun(def *Definition, trigger Trigger) string {
	now := time.Now().UTC()
	run := &Run{
		ID:         uuid.NewString(),
		WorkflowID: def.ID,
		Trigger:    trigger,
		Status:     StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := e.runs.Create(run); err != nil {
		// The run proceeds either way; losing the record only costs
		// restart resumption for this run.
		e.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist run")
	}

	e.log.Info().
		Str("run_id", run.ID).
		Str("workflow", def.ID).
		Str("trigger", describeTrigger(trigger)).
		Msg("Run dispatched")

	e.wg.Add(1)
	go e.execute(def, run)

	return run.ID
}

// execute drives one run to a terminal status.
func (e *Engine) execute(def *Definition, run *Run) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.finishRun(run, Output{}, fmt.Errorf("workflow panic: %v", r))
		}
	}()

	wc := NewContext(run.ID, run.Trigger, e.exec, e.log.With().Str("workflow", def.ID).Logger())

	out, err := def.Handler(context.Background(), wc)
	e.finishRun(run, out, err)
}

func (e *Engine) finishRun(run *Run, out Output, err error) {
	run.UpdatedAt = time.Now().UTC()

	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		e.log.Error().
			Err(err).
			Str("run_id", run.ID).
			Str("workflow", run.WorkflowID).
			Msg("Run failed")
		e.notifier.RunFailed(run.ID, run.WorkflowID, err)
	} else {
		run.Status = StatusSucceeded
		run.Output = &out
		e.log.Info().
			Str("run_id", run.ID).
			Str("workflow", run.WorkflowID).
			Bool("success", out.Success).
			Str("message", out.Message).
			Msg("Run completed")
	}

	if err := e.runs.Update(run); err != nil {
		e.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist run status")
	}
}

func describeTrigger(t Trigger) string {
	if t.Kind == TriggerSchedule {
		return "schedule " + t.Cron
	}
	return "event " + t.Event
}

// cronDispatch adapts a cron-triggered definition to the scheduler's
// Job interface.
type cronDispatch struct {
	engine *Engine
	def    *Definition
}

func (j *cronDispatch) Name() string {
	return j.def.ID
}

func (j *cronDispatch) Run() error {
	j.engine.startRun(j.def, NewScheduleTrigger(j.def.Cron))
	return nil
}
