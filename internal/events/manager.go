package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	UserCreated     EventType = "USER_CREATED"
	DigestRequested EventType = "DIGEST_REQUESTED"

	WorkflowRunStarted   EventType = "WORKFLOW_RUN_STARTED"
	WorkflowRunSucceeded EventType = "WORKFLOW_RUN_SUCCEEDED"
	WorkflowRunFailed    EventType = "WORKFLOW_RUN_FAILED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Manager handles event emission and logging. It is the operator
// channel for the workflow engine: run-fatal failures land here
// instead of being silently dropped.
type Manager struct {
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log: log.With().Str("service", "events").Logger(),
	}
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	// Log event
	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, data)
}

// RunFailed implements the workflow engine's Notifier interface.
func (m *Manager) RunFailed(runID, workflowID string, err error) {
	m.Emit(WorkflowRunFailed, "workflow", map[string]interface{}{
		"run_id":   runID,
		"workflow": workflowID,
		"error":    err.Error(),
	})
}
