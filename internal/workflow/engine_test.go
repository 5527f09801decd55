package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu     sync.Mutex
	failed []string
}

func (n *captureNotifier) RunFailed(runID, workflowID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, workflowID)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failed)
}

func newTestEngine(t *testing.T, notifier Notifier) (*Engine, *MemoryRunStore) {
	t.Helper()

	runs := NewMemoryRunStore()
	return New(Config{
		Runs:     runs,
		Steps:    NewMemoryStepStore(),
		Notifier: notifier,
		Retry:    RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond, Multiplier: 1},
		Log:      zerolog.Nop(),
	}), runs
}

func waitForStatus(t *testing.T, engine *Engine, runID string, want Status) *Run {
	t.Helper()

	var run *Run
	require.Eventually(t, func() bool {
		var err error
		run, err = engine.Run(runID)
		return err == nil && run != nil && run.Status == want
	}, 2*time.Second, 5*time.Millisecond)

	return run
}

func TestDispatchRunsMatchingWorkflow(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	require.NoError(t, engine.Register(&Definition{
		ID:    "greeter",
		Event: "user.created",
		Handler: func(ctx context.Context, wc *Context) (Output, error) {
			name, err := Step(ctx, wc, "read-name", func(ctx context.Context) (string, error) {
				return "Ada", nil
			})
			if err != nil {
				return Output{}, err
			}
			return Output{Success: true, Message: "hello " + name}, nil
		},
	}))

	trigger, err := NewEventTrigger("user.created", map[string]string{"email": "ada@example.com"})
	require.NoError(t, err)

	runIDs, err := engine.Dispatch(trigger)
	require.NoError(t, err)
	require.Len(t, runIDs, 1)

	run := waitForStatus(t, engine, runIDs[0], StatusSucceeded)
	require.NotNil(t, run.Output)
	assert.True(t, run.Output.Success)
	assert.Equal(t, "hello Ada", run.Output.Message)
	assert.Equal(t, "user.created", run.Trigger.Event)
}

func TestDispatchUnmatchedTrigger(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	trigger, err := NewEventTrigger("no.such.event", nil)
	require.NoError(t, err)

	_, err = engine.Dispatch(trigger)
	assert.ErrorIs(t, err, ErrNoWorkflow)
}

func TestDispatchStartsOneRunPerMatch(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	handler := func(ctx context.Context, wc *Context) (Output, error) {
		return Output{Success: true}, nil
	}
	require.NoError(t, engine.Register(&Definition{ID: "first", Event: "shared", Handler: handler}))
	require.NoError(t, engine.Register(&Definition{ID: "second", Event: "shared", Handler: handler}))

	trigger, err := NewEventTrigger("shared", nil)
	require.NoError(t, err)

	runIDs, err := engine.Dispatch(trigger)
	require.NoError(t, err)
	assert.Len(t, runIDs, 2)
}

func TestFailedRunNotifiesOperator(t *testing.T) {
	notifier := &captureNotifier{}
	engine, _ := newTestEngine(t, notifier)

	require.NoError(t, engine.Register(&Definition{
		ID:    "doomed",
		Event: "boom",
		Handler: func(ctx context.Context, wc *Context) (Output, error) {
			_, err := Step(ctx, wc, "explode", func(ctx context.Context) (string, error) {
				return "", errors.New("kaboom")
			})
			return Output{}, err
		},
	}))

	trigger, err := NewEventTrigger("boom", nil)
	require.NoError(t, err)

	runIDs, err := engine.Dispatch(trigger)
	require.NoError(t, err)

	run := waitForStatus(t, engine, runIDs[0], StatusFailed)
	assert.Contains(t, run.Error, "explode")
	assert.Equal(t, 1, notifier.count())
}

func TestHandlerPanicFailsRun(t *testing.T) {
	notifier := &captureNotifier{}
	engine, _ := newTestEngine(t, notifier)

	require.NoError(t, engine.Register(&Definition{
		ID:    "panicky",
		Event: "panic",
		Handler: func(ctx context.Context, wc *Context) (Output, error) {
			panic("unexpected state")
		},
	}))

	trigger, err := NewEventTrigger("panic", nil)
	require.NoError(t, err)

	runIDs, err := engine.Dispatch(trigger)
	require.NoError(t, err)

	run := waitForStatus(t, engine, runIDs[0], StatusFailed)
	assert.Contains(t, run.Error, "panic")
}

func TestRetryReplaysCompletedSteps(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	var mu sync.Mutex
	firstCalls := 0
	secondFails := true

	require.NoError(t, engine.Register(&Definition{
		ID:    "two-step",
		Event: "go",
		Handler: func(ctx context.Context, wc *Context) (Output, error) {
			_, err := Step(ctx, wc, "first", func(ctx context.Context) (int, error) {
				mu.Lock()
				firstCalls++
				mu.Unlock()
				return 1, nil
			})
			if err != nil {
				return Output{}, err
			}

			_, err = Step(ctx, wc, "second", func(ctx context.Context) (int, error) {
				mu.Lock()
				defer mu.Unlock()
				if secondFails {
					return 0, errors.New("downstream outage")
				}
				return 2, nil
			})
			if err != nil {
				return Output{}, err
			}

			return Output{Success: true, Message: "done"}, nil
		},
	}))

	trigger, err := NewEventTrigger("go", nil)
	require.NoError(t, err)

	runIDs, err := engine.Dispatch(trigger)
	require.NoError(t, err)
	waitForStatus(t, engine, runIDs[0], StatusFailed)

	mu.Lock()
	secondFails = false
	mu.Unlock()

	require.NoError(t, engine.Retry(runIDs[0]))
	run := waitForStatus(t, engine, runIDs[0], StatusSucceeded)

	require.NotNil(t, run.Output)
	assert.Equal(t, "done", run.Output.Message)
	assert.Empty(t, run.Error)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, firstCalls, "completed step must replay from the store on retry")
}

func TestRetryUnknownRun(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	err := engine.Retry("no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestResumeInFlightRestartsRunningRuns(t *testing.T) {
	engine, runs := newTestEngine(t, nil)

	require.NoError(t, engine.Register(&Definition{
		ID:    "resumable",
		Event: "tick",
		Handler: func(ctx context.Context, wc *Context) (Output, error) {
			return Output{Success: true, Message: "resumed"}, nil
		},
	}))

	// Simulate a run left behind by a crashed process
	now := time.Now().UTC()
	require.NoError(t, runs.Create(&Run{
		ID:         "stale-run",
		WorkflowID: "resumable",
		Trigger:    Trigger{Kind: TriggerEvent, Event: "tick"},
		Status:     StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	resumed, err := engine.ResumeInFlight()
	require.NoError(t, err)
	assert.Equal(t, 1, resumed)

	run := waitForStatus(t, engine, "stale-run", StatusSucceeded)
	assert.Equal(t, "resumed", run.Output.Message)
}

func TestRegisterRejectsInvalidDefinition(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	handler := func(ctx context.Context, wc *Context) (Output, error) { return Output{}, nil }

	assert.Error(t, engine.Register(&Definition{Event: "x", Handler: handler}), "missing ID")
	assert.Error(t, engine.Register(&Definition{ID: "x", Event: "x"}), "missing handler")
	assert.Error(t, engine.Register(&Definition{ID: "x", Handler: handler}), "missing trigger")

	require.NoError(t, engine.Register(&Definition{ID: "dup", Event: "e", Handler: handler}))
	assert.Error(t, engine.Register(&Definition{ID: "dup", Event: "e", Handler: handler}), "duplicate ID")
}

func TestStopWaitsForInFlightRuns(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	release := make(chan struct{})
	require.NoError(t, engine.Register(&Definition{
		ID:    "slow",
		Event: "slow",
		Handler: func(ctx context.Context, wc *Context) (Output, error) {
			<-release
			return Output{Success: true}, nil
		},
	}))

	trigger, err := NewEventTrigger("slow", nil)
	require.NoError(t, err)
	runIDs, err := engine.Dispatch(trigger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, engine.Stop(ctx), context.DeadlineExceeded)

	close(release)
	waitForStatus(t, engine, runIDs[0], StatusSucceeded)

	require.NoError(t, engine.Stop(context.Background()))
}
