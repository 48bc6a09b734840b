// Package events centralizes the server→client event names and payload
// shapes that travel over the duplex channel (Centrifugo personal and
// room channels). Handlers elsewhere build these structs directly;
// this package exists so the event vocabulary has one home instead of
// scattered string literals.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Client → server event names, matched against the incoming {event,
// payload} envelope by the RPC dispatcher.
const (
	EventAuthenticate       = "authenticate"
	EventJoinQueue          = "join_queue"
	EventLeaveQueue         = "leave_queue"
	EventJoinLobby          = "join_lobby"
	EventReadyUp            = "ready_up"
	EventCodeUpdate         = "code_update"
	EventRunCode            = "run_code"
	EventSubmitSolution     = "submit_solution"
	EventRequestHint        = "request_hint"
	EventActivatePowerUp    = "activate_powerup"
	EventJoinSpectate       = "join_spectate"
	EventSpectatorMessage   = "spectator_message"
	EventSpectatorReaction  = "spectator_reaction"
)

// Server → client event names.
const (
	EventAuthenticated       = "authenticated"
	EventQueuePosition       = "queue_position"
	EventMatchFound          = "match_found"
	EventOpponentJoined      = "opponent_joined"
	EventOpponentReady       = "opponent_ready"
	EventMatchStarting       = "match_starting"
	EventLobbyState          = "lobby_state"
	EventMatchStarted        = "match_started"
	EventTimerSync           = "timer_sync"
	EventOpponentCodeUpdate  = "opponent_code_update"
	EventOpponentTestRun     = "opponent_test_run"
	EventTestResult          = "test_result"
	EventOpponentSubmitted   = "opponent_submitted"
	EventMatchResult         = "match_result"
	EventPowerUpActivated    = "powerup_activated"
	EventPowerUpStateUpdate  = "powerup_state_update"
	EventPowerUpError        = "powerup_error"
	EventOpponentUsedPowerUp = "opponent_used_powerup"
	EventHintResponse        = "hint_response"
	EventHintError           = "hint_error"
	EventHintStatusUpdate    = "hint_status_update"
	EventAnalysisReady       = "analysis_ready"
	EventAnalysisError       = "analysis_error"
	EventReconnected         = "reconnected"
	EventError               = "error"
	EventGhostTick           = "ghost_tick"
	EventRaceResult          = "race_result"
)

// QueuePositionPayload is published to the queuing player's personal
// channel on each widening tick.
type QueuePositionPayload struct {
	Position int `json:"pos"`
	WaitSecs int `json:"wait"`
}

// MatchFoundPayload is published to each paired player's personal
// channel once a lobby has been created for them.
type MatchFoundPayload struct {
	MatchID  uuid.UUID        `json:"match_id"`
	Challenge ChallengeSummary `json:"challenge"`
	Opponent OpponentSummary  `json:"opponent"`
}

// ChallengeSummary is the minimal challenge description handed to
// clients before they've subscribed to the match room.
type ChallengeSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Difficulty string    `json:"difficulty"`
}

// OpponentSummary is the minimal opponent profile handed to clients.
type OpponentSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Rating      int       `json:"rating"`
}

// MatchStartingPayload announces the single countdown for a match.
type MatchStartingPayload struct {
	CountdownSecs int `json:"countdown"`
}

// MatchStartedPayload is broadcast to the match room the instant the
// FSM transitions to active.
type MatchStartedPayload struct {
	StartTime    time.Time `json:"startTime"`
	TimeLimitSecs int      `json:"timeLimit"`
	RemainingSecs int      `json:"remaining"`
}

// TimerSyncPayload is pushed to each player every 5 seconds while a match
// is active, carrying that player's effective remaining time.
type TimerSyncPayload struct {
	RemainingSecs int `json:"remaining"`
}

// OpponentCodeUpdatePayload mirrors a throttled edit to the opponent.
type OpponentCodeUpdatePayload struct {
	Code   string    `json:"code"`
	Cursor CursorPos `json:"cursor"`
}

// CursorPos is a 0-indexed line/column cursor position.
type CursorPos struct {
	Line   int `json:"l"`
	Column int `json:"c"`
}

// TestResultPayload is returned to the requesting player after a
// run_code or submit_solution sandbox pass.
type TestResultPayload struct {
	Results              interface{} `json:"results"`
	DebugShieldActive    bool        `json:"debugShieldActive,omitempty"`
	ShieldChargesRemaining int       `json:"shieldChargesRemaining,omitempty"`
}

// MatchResultPayload is broadcast to the match room once judging
// completes (or falls back).
type MatchResultPayload struct {
	WinnerID    *uuid.UUID  `json:"winner"`
	Scores      interface{} `json:"scores"`
	Feedback    interface{} `json:"feedback,omitempty"`
	DurationSecs int        `json:"duration"`
	MatchID     uuid.UUID   `json:"matchId"`
}

// PowerUpActivatedPayload is delivered to the activating player; the
// opponentCode/freezeExpiresAt/shieldedRuns fields are populated only
// for the power-up type that needs them.
type PowerUpActivatedPayload struct {
	PlayerID         uuid.UUID  `json:"playerId"`
	Type             string     `json:"type"`
	OpponentCode     string     `json:"opponentCode,omitempty"`
	FreezeExpiresAt  *time.Time `json:"freezeExpiresAt,omitempty"`
	ShieldedRuns     int        `json:"shieldedRuns,omitempty"`
}

// OpponentUsedPowerUpPayload is the opponent-facing notice that omits
// any payload the activator could exploit.
type OpponentUsedPowerUpPayload struct {
	Type string `json:"type"`
}

// HintResponsePayload carries a generated, redacted hint.
type HintResponsePayload struct {
	Hint interface{} `json:"hint"`
}

// HintStatusUpdatePayload reports remaining hint allowance.
type HintStatusUpdatePayload struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// ReconnectedPayload snapshots current match state for a reconnecting
// client so it can repaint without replaying the whole event log.
type ReconnectedPayload struct {
	MatchState interface{} `json:"matchState"`
}

// ErrorPayload is the generic typed-error envelope used whenever an
// apperr.Error crosses the wire.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// GhostTickPayload streams one recorded ghost event during a Ghost
// Race playback.
type GhostTickPayload struct {
	OffsetMillis int `json:"offsetMillis"`
	CodeLength   int `json:"codeLength"`
	TestsPassed  int `json:"testsPassed"`
	TestsTotal   int `json:"testsTotal"`
}

// RaceResultPayload reports a Ghost Race's outcome to the racing
// player's personal channel.
type RaceResultPayload struct {
	RaceID      uuid.UUID `json:"raceId"`
	PlayerScore int       `json:"playerScore"`
	GhostScore  int       `json:"ghostScore"`
	PlayerWon   bool      `json:"playerWon"`
}
