package workflow

import (
	"fmt"
	"sync"
)

// StepStore persists memoized step results. Put must be idempotent on
// the (RunID, StepName) key: the first completed write wins and later
// writers receive the stored winner, which keeps duplicate trigger
// delivery and concurrent run retries safe.
type StepStore interface {
	// Get returns the memoized result for the key, or nil if the step
	// has not completed yet.
	Get(runID, stepName string) (*StepResult, error)
	// Put stores the result unless one already exists, and returns
	// whichever result is durably stored.
	Put(res StepResult) (StepResult, error)
}

// RunStore persists workflow runs.
type RunStore interface {
	Create(run *Run) error
	Update(run *Run) error
	Get(id string) (*Run, error)
	// ListByStatus returns runs in the given state, used to resume
	// in-flight runs after a restart.
	ListByStatus(status Status) ([]*Run, error)
}

// MemoryStepStore is an in-memory StepStore for tests and for running
// without durability.
type MemoryStepStore struct {
	mu      sync.Mutex
	results map[string]StepResult
}

// NewMemoryStepStore creates an empty in-memory step store.
func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{results: make(map[string]StepResult)}
}

func stepKey(runID, stepName string) string {
	return runID + "\x00" + stepName
}

// Get returns the memoized result for the key, or nil.
func (s *MemoryStepStore) Get(runID, stepName string) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.results[stepKey(runID, stepName)]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// Put stores the result if no result exists yet for the key.
func (s *MemoryStepStore) Put(res StepResult) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stepKey(res.RunID, res.StepName)
	if existing, ok := s.results[key]; ok {
		return existing, nil
	}
	s.results[key] = res
	return res, nil
}

// MemoryRunStore is an in-memory RunStore for tests.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[string]Run
}

// NewMemoryRunStore creates an empty in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]Run)}
}

// Create stores a new run.
func (s *MemoryRunStore) Create(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = *run
	return nil
}

// Update overwrites an existing run.
func (s *MemoryRunStore) Update(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("run %s not found", run.ID)
	}
	s.runs[run.ID] = *run
	return nil
}

// Get returns a run by ID, or nil if unknown.
func (s *MemoryRunStore) Get(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

// ListByStatus returns all runs in the given state.
func (s *MemoryRunStore) ListByStatus(status Status) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Run
	for _, run := range s.runs {
		if run.Status == status {
			r := run
			out = append(out, &r)
		}
	}
	return out, nil
}
