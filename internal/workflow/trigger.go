package workflow

import "encoding/json"

// TriggerKind discriminates the two ways a run can start.
type TriggerKind string

const (
	// TriggerEvent is a named event delivered by a collaborator
	// (e.g. "user.created" after a successful signup write).
	TriggerEvent TriggerKind = "event"
	// TriggerSchedule is a cron tick.
	TriggerSchedule TriggerKind = "schedule"
)

// Trigger is an immutable snapshot of what started a run. Exactly one
// of Event or Cron is set, depending on Kind.
type Trigger struct {
	Kind    TriggerKind     `json:"kind"`
	Event   string          `json:"event,omitempty"`
	Cron    string          `json:"cron,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEventTrigger builds an event trigger. The payload is serialized
// at dispatch time so later mutations by the caller cannot leak into
// an in-flight run.
func NewEventTrigger(name string, payload interface{}) (Trigger, error) {
	t := Trigger{Kind: TriggerEvent, Event: name}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Trigger{}, err
		}
		t.Payload = raw
	}

	return t, nil
}

// NewScheduleTrigger builds a schedule trigger for a cron tick.
func NewScheduleTrigger(spec string) Trigger {
	return Trigger{Kind: TriggerSchedule, Cron: spec}
}
