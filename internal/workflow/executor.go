package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy bounds how often a failing step is retried before the
// failure is surfaced to the enclosing run.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy retries transient step failures twice (three
// attempts total) with exponential backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Backoff:     500 * time.Millisecond,
	Multiplier:  2.0,
}

// StepError is returned when a step exhausts its retry budget. The
// enclosing workflow decides whether this is run-fatal or converts it
// into a per-entity fallback.
type StepError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed after %d attempts: %v", e.Step, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepFunc is a unit of work executed within a run. Its return value
// must be JSON-serializable so it can be memoized.
type StepFunc func(ctx context.Context) (interface{}, error)

// Executor runs named steps with at-least-once retry semantics and
// memoized completion. A step that already has a stored result is not
// re-executed when the run is retried or resumed.
type Executor struct {
	store  StepStore
	policy RetryPolicy
	log    zerolog.Logger
}

// NewExecutor creates a step executor on top of a step store.
func NewExecutor(store StepStore, policy RetryPolicy, log zerolog.Logger) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &Executor{
		store:  store,
		policy: policy,
		log:    log.With().Str("component", "step_executor").Logger(),
	}
}

// Execute runs the named step for the given run, returning the
// memoized result when one exists. On failure the step is retried up
// to the policy ceiling; exhausting all attempts yields a *StepError.
func (e *Executor) Execute(ctx context.Context, runID, stepName string, fn StepFunc) (json.RawMessage, error) {
	memoized, err := e.store.Get(runID, stepName)
	if err != nil {
		return nil, fmt.Errorf("failed to read step result: %w", err)
	}
	if memoized != nil {
		e.log.Debug().
			Str("run_id", runID).
			Str("step", stepName).
			Msg("Replaying memoized step result")
		return memoized.Output, nil
	}

	var lastErr error
	backoff := e.policy.Backoff

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return e.complete(runID, stepName, attempt, out)
		}

		lastErr = err
		e.log.Warn().
			Err(err).
			Str("run_id", runID).
			Str("step", stepName).
			Int("attempt", attempt).
			Msg("Step attempt failed")

		if attempt == e.policy.MaxAttempts {
			break
		}
		if err := sleepCtx(ctx, backoff); err != nil {
			lastErr = err
			break
		}
		backoff = time.Duration(float64(backoff) * e.policy.Multiplier)
	}

	return nil, &StepError{Step: stepName, Attempts: e.policy.MaxAttempts, Err: lastErr}
}

// complete serializes and persists a successful step result. Put is
// first-write-wins, so a concurrent duplicate of the same run cannot
// record two different outcomes for one step.
func (e *Executor) complete(runID, stepName string, attempts int, out interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step output: %w", err)
	}

	stored, err := e.store.Put(StepResult{
		RunID:       runID,
		StepName:    stepName,
		Output:      raw,
		Attempts:    attempts,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist step result: %w", err)
	}

	return stored.Output, nil
}

// sleepCtx waits for the backoff duration or until the context is
// cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
