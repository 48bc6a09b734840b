package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Match status values (mirrors constants.MatchStatus*, kept as plain
// strings at the storage boundary the way the teacher's models do).
const (
	MatchStatusLobby     = "LOBBY"
	MatchStatusCountdown = "COUNTDOWN"
	MatchStatusActive    = "ACTIVE"
	MatchStatusCompleted = "COMPLETED"
	MatchStatusAborted   = "ABORTED"
)

// Match is the durable record of a single 1v1 duel.
type Match struct {
	ID          uuid.UUID      `db:"id"`
	ChallengeID uuid.UUID      `db:"challenge_id"`
	Difficulty  string         `db:"difficulty"`
	Status      string         `db:"status"`
	PlayerOneID uuid.UUID      `db:"player_one_id"`
	PlayerTwoID uuid.UUID      `db:"player_two_id"`
	WinnerID    uuid.NullUUID  `db:"winner_id"`
	EndReason   sql.NullString `db:"end_reason"`
	StartedAt   sql.NullTime   `db:"started_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
	CreatedAt   time.Time      `db:"created_at"`
}

// MatchHistoryStats aggregates completion statistics for a difficulty
// tier, analogous to the teacher's per-league stats query.
type MatchHistoryStats struct {
	Difficulty       string  `json:"difficulty"`
	TotalMatches     int64   `json:"total_matches"`
	ActiveMatches    int64   `json:"active_matches"`
	AvgDurationSecs  float64 `json:"avg_duration_seconds"`
}
