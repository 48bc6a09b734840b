package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReplayEvent is a single durable entry in a match's append-only
// replay log. Payload is stored as JSONB, same shape the teacher uses
// for GhostReplay.BehavioralData: a typed Go struct marshaled in and
// parsed back out on demand rather than modeled as columns.
type ReplayEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	MatchID      uuid.UUID       `db:"match_id" json:"match_id"`
	PlayerID     uuid.NullUUID   `db:"player_id" json:"player_id,omitempty"`
	Seq          int64           `db:"seq" json:"seq"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	TimestampMs  int64           `db:"timestamp_ms" json:"timestamp_ms"`
	OccurredAt   time.Time       `db:"occurred_at" json:"occurred_at"`
}

// ReplayEventType enumerates the event types appended to the log.
const (
	ReplayEventMatchStarted  = "MATCH_STARTED"
	ReplayEventCodeUpdate    = "CODE_UPDATE"
	ReplayEventTestRun       = "TEST_RUN"
	ReplayEventSubmission    = "SUBMISSION"
	ReplayEventPowerUpUsed   = "POWER_UP_USED"
	ReplayEventHintRequested = "HINT_REQUESTED"
	ReplayEventMatchEnded    = "MATCH_ENDED"
)

// SetPayload marshals v into the event's JSONB payload column.
func (e *ReplayEvent) SetPayload(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.Payload = data
	return nil
}

// ParsePayload unmarshals the event's JSONB payload into v.
func (e *ReplayEvent) ParsePayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
