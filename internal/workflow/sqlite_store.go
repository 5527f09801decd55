package workflow

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const timeLayout = time.RFC3339Nano

// SQLiteStepStore is the durable step-memoization store. Idempotency
// on the (run_id, step_name) key comes from the primary key plus
// INSERT OR IGNORE: the first completed write wins and every caller
// reads back the stored row.
type SQLiteStepStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStepStore creates a step store backed by the given database.
func NewSQLiteStepStore(db *sql.DB, log zerolog.Logger) *SQLiteStepStore {
	return &SQLiteStepStore{
		db:  db,
		log: log.With().Str("repo", "step_results").Logger(),
	}
}

// Get returns the memoized result for the key, or nil.
func (s *SQLiteStepStore) Get(runID, stepName string) (*StepResult, error) {
	query := `
		SELECT run_id, step_name, output_json, attempts, completed_at
		FROM step_results
		WHERE run_id = ? AND step_name = ?
	`

	var res StepResult
	var output string
	var completedAt string

	err := s.db.QueryRow(query, runID, stepName).Scan(
		&res.RunID, &res.StepName, &output, &res.Attempts, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query step result: %w", err)
	}

	res.Output = json.RawMessage(output)
	res.CompletedAt, err = time.Parse(timeLayout, completedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse completion time: %w", err)
	}

	return &res, nil
}

// Put stores the result unless a row already exists for the key, then
// returns the stored winner.
func (s *SQLiteStepStore) Put(res StepResult) (StepResult, error) {
	query := `
		INSERT OR IGNORE INTO step_results (run_id, step_name, output_json, attempts, completed_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		res.RunID,
		res.StepName,
		string(res.Output),
		res.Attempts,
		res.CompletedAt.Format(timeLayout),
	)
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to insert step result: %w", err)
	}

	stored, err := s.Get(res.RunID, res.StepName)
	if err != nil {
		return StepResult{}, err
	}
	if stored == nil {
		return StepResult{}, fmt.Errorf("step result vanished after insert: %s/%s", res.RunID, res.StepName)
	}

	return *stored, nil
}

// SQLiteRunStore persists workflow runs.
type SQLiteRunStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteRunStore creates a run store backed by the given database.
func NewSQLiteRunStore(db *sql.DB, log zerolog.Logger) *SQLiteRunStore {
	return &SQLiteRunStore{
		db:  db,
		log: log.With().Str("repo", "workflow_runs").Logger(),
	}
}

// Create inserts a new run.
func (s *SQLiteRunStore) Create(run *Run) error {
	triggerJSON, err := json.Marshal(run.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	query := `
		INSERT INTO workflow_runs (id, workflow_id, trigger_json, status, output_json, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		run.ID,
		run.WorkflowID,
		string(triggerJSON),
		string(run.Status),
		marshalOutput(run.Output),
		run.Error,
		run.CreatedAt.Format(timeLayout),
		run.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Update overwrites the mutable columns of an existing run.
func (s *SQLiteRunStore) Update(run *Run) error {
	query := `
		UPDATE workflow_runs
		SET status = ?, output_json = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query,
		string(run.Status),
		marshalOutput(run.Output),
		run.Error,
		run.UpdatedAt.Format(timeLayout),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	return nil
}

// Get returns a run by ID, or nil if unknown.
func (s *SQLiteRunStore) Get(id string) (*Run, error) {
	query := `
		SELECT id, workflow_id, trigger_json, status, output_json, error, created_at, updated_at
		FROM workflow_runs
		WHERE id = ?
	`

	run, err := s.scanRun(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return run, nil
}

// ListByStatus returns runs in the given state, oldest first.
func (s *SQLiteRunStore) ListByStatus(status Status) ([]*Run, error) {
	query := `
		SELECT id, workflow_id, trigger_json, status, output_json, error, created_at, updated_at
		FROM workflow_runs
		WHERE status = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteRunStore) scanRun(row rowScanner) (*Run, error) {
	var run Run
	var triggerJSON, status string
	var outputJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&run.ID, &run.WorkflowID, &triggerJSON, &status, &outputJSON, &run.Error, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(triggerJSON), &run.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}
	run.Status = Status(status)

	if outputJSON.Valid && outputJSON.String != "" {
		var out Output
		if err := json.Unmarshal([]byte(outputJSON.String), &out); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output: %w", err)
		}
		run.Output = &out
	}

	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &run, nil
}

func marshalOutput(out *Output) interface{} {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return string(raw)
}
