// Package ghostrace implements C10 Ghost Race: a single-player
// specialization of the Match FSM + Replay Log that races a player's
// submission against a previously-recorded (or AI-synthesized) timeline
// instead of a live opponent.
package ghostrace

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/metrics"
	"github.com/codeduel/match-core/internal/modules/roomfabric"
	"github.com/codeduel/match-core/internal/sandbox"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

const (
	playbackTickInterval = 50 * time.Millisecond
	raceStateTTL         = 2 * time.Hour
)

// Status is a Ghost Race's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// RaceState is the ephemeral per-race record, mirroring a degenerate
// single-player MatchState.
type RaceState struct {
	RaceID                 uuid.UUID `json:"race_id"`
	PlayerID               uuid.UUID `json:"player_id"`
	GhostID                uuid.UUID `json:"ghost_id"`
	ChallengeID            uuid.UUID `json:"challenge_id"`
	Status                 Status    `json:"status"`
	StartedAt              time.Time `json:"started_at"`
	CurrentGhostEventIndex int       `json:"current_ghost_event_index"`
}

// Result is the outcome of a completed race: the player's own judged
// score against the ghost's stored final score.
type Result struct {
	RaceID      uuid.UUID
	PlayerScore int
	GhostScore  int
	PlayerWon   bool
}

// Race is the C10 Ghost Race contract.
type Race interface {
	// StartRace begins a new race for playerID against challengeID,
	// using ghostID's recording if provided, otherwise a random
	// recording for the challenge, otherwise an AI-synthesized one.
	StartRace(ctx context.Context, playerID, challengeID uuid.UUID, ghostID *uuid.UUID) (*RaceState, error)

	// SubmitCode judges the player's code against the challenge's
	// visible tests and settles the race against the ghost's score.
	SubmitCode(ctx context.Context, raceID uuid.UUID, code, language string) (*Result, error)

	// Abandon marks a race abandoned and stops its playback timer. It
	// runs from the abandon_race RPC; the session-expiry cleanup for a
	// disconnected player does not call it.
	Abandon(ctx context.Context, raceID uuid.UUID) error
}

type race struct {
	redis      *redis.Client
	rooms      roomfabric.Fabric
	challenges repository.ChallengeRepository
	ghosts     repository.GhostRecordingRepository
	sandbox    sandbox.Executor
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// New constructs the Ghost Race service.
func New(redisClient *redis.Client, rooms roomfabric.Fabric, challenges repository.ChallengeRepository, ghosts repository.GhostRecordingRepository, executor sandbox.Executor, logger *logrus.Logger, m *metrics.Metrics) Race {
	return &race{
		redis:      redisClient,
		rooms:      rooms,
		challenges: challenges,
		ghosts:     ghosts,
		sandbox:    executor,
		logger:     logger,
		metrics:    m,
	}
}

func stateKey(raceID uuid.UUID) string {
	return fmt.Sprintf("ghostrace:%s:state", raceID)
}

// StartRace resolves a ghost recording (explicit, random, or
// AI-synthesized fallback), persists the race's ephemeral state, and
// starts its playback timer.
func (r *race) StartRace(ctx context.Context, playerID, challengeID uuid.UUID, ghostID *uuid.UUID) (*RaceState, error) {
	challenge, err := r.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeMatchNotFound, "challenge not found", err)
	}

	recording, err := r.resolveRecording(ctx, challenge, ghostID)
	if err != nil {
		return nil, err
	}

	state := &RaceState{
		RaceID:      uuid.New(),
		PlayerID:    playerID,
		GhostID:     recording.ID,
		ChallengeID: challengeID,
		Status:      StatusActive,
		StartedAt:   time.Now(),
	}

	if err := r.saveState(ctx, state); err != nil {
		return nil, err
	}

	ticks, err := recording.GetTimeline()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ghost timeline: %w", err)
	}

	go r.runPlayback(context.Background(), state.RaceID, ticks)

	r.logger.WithFields(logrus.Fields{
		"race_id":      state.RaceID,
		"player_id":    playerID,
		"ghost_id":     recording.ID,
		"challenge_id": challengeID,
	}).Info("ghost race started")

	return state, nil
}

// resolveRecording follows the precedence: explicit ghost, random
// recording for the challenge, AI-synthesized fallback.
func (r *race) resolveRecording(ctx context.Context, challenge *models.Challenge, ghostID *uuid.UUID) (*models.GhostRecording, error) {
	if ghostID != nil {
		recording, err := r.ghosts.GetByID(ctx, *ghostID)
		if err != nil {
			return nil, fmt.Errorf("failed to load requested ghost recording: %w", err)
		}
		if recording != nil {
			return recording, nil
		}
	}

	recording, err := r.ghosts.GetRandomForChallenge(ctx, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load random ghost recording: %w", err)
	}
	if recording != nil {
		return recording, nil
	}

	return synthesizeGhost(challenge)
}

// runPlayback ticks every playbackTickInterval, broadcasting every
// ghost event whose offset has elapsed since the race started, and
// stops once the timeline is exhausted or the race is no longer active.
func (r *race) runPlayback(ctx context.Context, raceID uuid.UUID, ticks []models.TimelineTick) {
	ticker := time.NewTicker(playbackTickInterval)
	defer ticker.Stop()

	started := time.Now()
	index := 0
	room := roomfabric.GhostRaceRoom(raceID)

	for range ticker.C {
		state, err := r.getState(ctx, raceID)
		if err != nil || state == nil || state.Status != StatusActive {
			return
		}

		elapsed := time.Since(started).Milliseconds()
		for index < len(ticks) && ticks[index].OffsetMillis <= elapsed {
			if err := r.rooms.Broadcast(ctx, room, "ghost_tick", ticks[index]); err != nil {
				r.logger.WithError(err).WithField("race_id", raceID).Warn("failed to broadcast ghost tick")
			}
			index++
		}

		if index >= len(ticks) {
			return
		}
	}
}

// SubmitCode runs the player's code against the challenge's visible
// tests, scores it the same way a real test-run would, and settles the
// race against the ghost's stored final score.
func (r *race) SubmitCode(ctx context.Context, raceID uuid.UUID, code, language string) (*Result, error) {
	state, err := r.getState(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Status != StatusActive {
		return nil, apperr.New(apperr.CodeMatchNotActive, "race is not active")
	}

	challenge, err := r.challenges.GetByID(ctx, state.ChallengeID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeMatchNotFound, "challenge not found", err)
	}
	recording, err := r.ghosts.GetByID(ctx, state.GhostID)
	if err != nil || recording == nil {
		return nil, apperr.Wrap(apperr.CodeMatchNotFound, "ghost recording not found", err)
	}

	testCases, err := challenge.GetTestCases()
	if err != nil {
		return nil, fmt.Errorf("failed to parse challenge test cases: %w", err)
	}

	passed, total := 0, 0
	for _, tc := range testCases {
		if tc.Hidden {
			continue
		}
		total++
		res, err := r.sandbox.Execute(ctx, sandbox.ExecuteRequest{
			Language:      language,
			Code:          code,
			TestInputJSON: string(tc.InputJSON),
			TimeoutMs:     15000,
		})
		if err == nil && !res.TimedOut && res.Stdout == string(tc.ExpectedJSON) {
			passed++
		}
	}

	playerScore := 0
	if total > 0 {
		playerScore = passed * 1000 / total
	}

	state.Status = StatusCompleted
	if err := r.saveState(ctx, state); err != nil {
		return nil, err
	}

	result := &Result{
		RaceID:      raceID,
		PlayerScore: playerScore,
		GhostScore:  recording.FinalScore,
		PlayerWon:   playerScore > recording.FinalScore,
	}

	room := roomfabric.GhostRaceRoom(raceID)
	_ = r.rooms.Broadcast(ctx, room, "race_result", result)

	return result, nil
}

// Abandon marks a race abandoned; the playback goroutine observes the
// status change on its next tick and exits.
func (r *race) Abandon(ctx context.Context, raceID uuid.UUID) error {
	state, err := r.getState(ctx, raceID)
	if err != nil {
		return err
	}
	if state == nil || state.Status != StatusActive {
		return nil
	}
	state.Status = StatusAbandoned
	return r.saveState(ctx, state)
}

func (r *race) saveState(ctx context.Context, state *RaceState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal race state: %w", err)
	}
	return r.redis.Set(ctx, stateKey(state.RaceID), data, raceStateTTL).Err()
}

func (r *race) getState(ctx context.Context, raceID uuid.UUID) (*RaceState, error) {
	data, err := r.redis.Get(ctx, stateKey(raceID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load race state: %w", err)
	}
	var state RaceState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal race state: %w", err)
	}
	return &state, nil
}

// synthesizeGhost generates a plausible typing timeline from a
// challenge's reference solution when no real recording exists,
// deriving deterministic pacing from a content hash of the solution —
// the same seed-derivation idiom the teacher uses for heat crash
// seeds, applied to typing cadence instead of a crash multiplier.
func synthesizeGhost(challenge *models.Challenge) (*models.GhostRecording, error) {
	if challenge.ReferenceSolution == "" {
		return nil, apperr.New(apperr.CodeMatchNotFound, "no ghost recording or reference solution available for challenge")
	}

	hash := sha256.Sum256([]byte(challenge.ReferenceSolution))

	source := []rune(challenge.ReferenceSolution)
	ticks := make([]models.TimelineTick, 0, len(source)/8+1)
	msPerChar := 40 + int(hash[0]%60)

	for i := 8; i <= len(source); i += 8 {
		ticks = append(ticks, models.TimelineTick{
			OffsetMillis: int64(i * msPerChar),
			CodeLength:   i,
		})
	}
	ticks = append(ticks, models.TimelineTick{
		OffsetMillis: int64(len(source) * msPerChar),
		CodeLength:   len(source),
		TestsPassed:  1,
		TestsTotal:   1,
	})

	recording := &models.GhostRecording{
		ID:             uuid.New(),
		SourceMatchID:  uuid.Nil,
		SourcePlayerID: uuid.Nil,
		Difficulty:     challenge.Difficulty,
		ChallengeID:    challenge.ID,
		FinalScore:     700,
		CreatedAt:      time.Now(),
	}
	if err := recording.SetTimeline(ticks); err != nil {
		return nil, err
	}

	return recording, nil
}
