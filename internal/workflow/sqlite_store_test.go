package workflow

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanatinart02/next-stock-tracker-app/internal/database"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestSQLiteStepStoreRoundtrip(t *testing.T) {
	db := testDB(t)
	store := NewSQLiteStepStore(db.Conn(), zerolog.Nop())

	missing, err := store.Get("run-1", "step-a")
	require.NoError(t, err)
	assert.Nil(t, missing)

	res := StepResult{
		RunID:       "run-1",
		StepName:    "step-a",
		Output:      json.RawMessage(`{"value":42}`),
		Attempts:    2,
		CompletedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	stored, err := store.Put(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":42}`, string(stored.Output))

	got, err := store.Get("run-1", "step-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, res.StepName, got.StepName)
	assert.Equal(t, res.Attempts, got.Attempts)
	assert.JSONEq(t, string(res.Output), string(got.Output))
	assert.True(t, got.CompletedAt.Equal(res.CompletedAt))
}

func TestSQLiteStepStoreFirstWriteWins(t *testing.T) {
	db := testDB(t)
	store := NewSQLiteStepStore(db.Conn(), zerolog.Nop())

	first := StepResult{
		RunID:       "run-1",
		StepName:    "step-a",
		Output:      json.RawMessage(`"winner"`),
		Attempts:    1,
		CompletedAt: time.Now().UTC(),
	}
	_, err := store.Put(first)
	require.NoError(t, err)

	second := first
	second.Output = json.RawMessage(`"loser"`)
	second.Attempts = 3

	stored, err := store.Put(second)
	require.NoError(t, err)
	assert.JSONEq(t, `"winner"`, string(stored.Output))
	assert.Equal(t, 1, stored.Attempts)
}

func TestSQLiteRunStoreLifecycle(t *testing.T) {
	db := testDB(t)
	store := NewSQLiteRunStore(db.Conn(), zerolog.Nop())

	now := time.Now().UTC().Truncate(time.Millisecond)
	trigger, err := NewEventTrigger("user.created", map[string]string{"email": "ada@example.com"})
	require.NoError(t, err)

	run := &Run{
		ID:         "run-1",
		WorkflowID: "send-sign-up-email",
		Trigger:    trigger,
		Status:     StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.Create(run))

	got, err := store.Get("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, "user.created", got.Trigger.Event)
	assert.Nil(t, got.Output)

	run.Status = StatusSucceeded
	run.Output = &Output{Success: true, Message: "Welcome email sent successfully"}
	run.UpdatedAt = now.Add(time.Second)
	require.NoError(t, store.Update(run))

	got, err = store.Get("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusSucceeded, got.Status)
	require.NotNil(t, got.Output)
	assert.True(t, got.Output.Success)
	assert.Equal(t, "Welcome email sent successfully", got.Output.Message)
}

func TestSQLiteRunStoreGetUnknown(t *testing.T) {
	db := testDB(t)
	store := NewSQLiteRunStore(db.Conn(), zerolog.Nop())

	got, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = store.Update(&Run{ID: "missing", Status: StatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteRunStoreListByStatus(t *testing.T) {
	db := testDB(t)
	store := NewSQLiteRunStore(db.Conn(), zerolog.Nop())

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, status := range []Status{StatusRunning, StatusSucceeded, StatusRunning} {
		run := &Run{
			ID:         string(rune('a' + i)),
			WorkflowID: "wf",
			Trigger:    Trigger{Kind: TriggerEvent, Event: "e"},
			Status:     status,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			UpdatedAt:  base,
		}
		require.NoError(t, store.Create(run))
	}

	running, err := store.ListByStatus(StatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 2)
	assert.Equal(t, "a", running[0].ID, "oldest first")
	assert.Equal(t, "c", running[1].ID)
}
