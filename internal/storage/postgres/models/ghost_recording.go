package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GhostRecording is a durable, replayable timeline of one player's
// past match — the source material for Ghost Race (C10). Direct
// adaptation of the teacher's GhostReplay/BehavioralData shape: a
// typed timeline marshaled into a single JSONB column rather than
// normalized into a table of ticks.
type GhostRecording struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	SourceMatchID uuid.UUID       `db:"source_match_id" json:"source_match_id"`
	SourcePlayerID uuid.UUID      `db:"source_player_id" json:"source_player_id"`
	Difficulty    string          `db:"difficulty" json:"difficulty"`
	ChallengeID   uuid.UUID       `db:"challenge_id" json:"challenge_id"`
	FinalScore    int             `db:"final_score" json:"final_score"`
	Timeline      json.RawMessage `db:"timeline" json:"timeline"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// TimelineTick is one recorded moment in a ghost recording's timeline:
// an offset from match start plus a snapshot of observable state at
// that offset (code length, test pass count, etc.) used to drive
// ghost playback pacing.
type TimelineTick struct {
	OffsetMillis  int64 `json:"offset_millis"`
	CodeLength    int   `json:"code_length"`
	TestsPassed   int   `json:"tests_passed"`
	TestsTotal    int   `json:"tests_total"`
}

// GetTimeline parses the timeline JSONB field.
func (g *GhostRecording) GetTimeline() ([]TimelineTick, error) {
	var ticks []TimelineTick
	if err := json.Unmarshal(g.Timeline, &ticks); err != nil {
		return nil, err
	}
	return ticks, nil
}

// SetTimeline sets the timeline JSONB field.
func (g *GhostRecording) SetTimeline(ticks []TimelineTick) error {
	data, err := json.Marshal(ticks)
	if err != nil {
		return err
	}
	g.Timeline = data
	return nil
}
