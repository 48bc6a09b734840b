// Package judging implements C8 Judging Pipeline: sandboxed test
// execution, scoring, AI quality grading, hint penalty, winner
// selection, and the atomic Elo rating update — wrapped in a global
// watchdog that always produces a completion, real or fallback.
package judging

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/aigrader"
	"github.com/codeduel/match-core/internal/metrics"
	"github.com/codeduel/match-core/internal/modules/hint"
	"github.com/codeduel/match-core/internal/modules/matchfsm"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/sandbox"
	"github.com/codeduel/match-core/internal/storage/postgres"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

const (
	correctnessMax = 400
	efficiencyMax  = 300
	qualityMax     = 200
	creativityMax  = 100
	perCaseTimeoutMs = 15000
	eloK           = 32
)

// TestCaseResult is one test case's graded outcome.
type TestCaseResult struct {
	Passed          bool  `json:"passed"`
	ActualOutput    string `json:"actualOutput"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExecutionTimeMs int64  `json:"executionTimeMs"`
	TimedOut        bool   `json:"timedOut"`
	Shielded        bool   `json:"shielded,omitempty"`
}

// PlayerJudgement is one player's full scoring breakdown.
type PlayerJudgement struct {
	PlayerID        uuid.UUID
	TestResults     []TestCaseResult
	CorrectnessScore float64
	EfficiencyScore  float64
	QualityScore     float64
	CreativityScore  float64
	TotalScore       float64
	FinalScore       float64
	HintsUsed        int
	Feedback         string

	code         string
	language     string
	meanExecTime time.Duration
}

// Pipeline is the C8 Judging Pipeline contract, implementing the
// matchfsm.Judger boundary the FSM depends on.
type Pipeline struct {
	state      matchstate.Store
	challenges repository.ChallengeRepository
	players    repository.PlayerRepository
	sandbox    sandbox.Executor
	ai         aigrader.Client
	coach      hint.Coach
	db         *postgres.DB
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// New constructs a Judging Pipeline.
func New(state matchstate.Store, challenges repository.ChallengeRepository, players repository.PlayerRepository, executor sandbox.Executor, ai aigrader.Client, coach hint.Coach, db *postgres.DB, logger *logrus.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		state:      state,
		challenges: challenges,
		players:    players,
		sandbox:    executor,
		ai:         ai,
		coach:      coach,
		db:         db,
		logger:     logger,
		metrics:    m,
	}
}

var _ matchfsm.Judger = (*Pipeline)(nil)

// Judge runs the full pipeline for both players independently, then
// applies the Elo update atomically within a single transaction.
func (p *Pipeline) Judge(ctx context.Context, matchID uuid.UUID) (*matchfsm.JudgingResult, error) {
	start := time.Now()
	state, err := p.state.GetState(ctx, matchID)
	if err != nil {
		return nil, err
	}

	challenge, err := p.challenges.GetByID(ctx, state.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	testCases, err := challenge.GetTestCases()
	if err != nil {
		return nil, fmt.Errorf("failed to parse challenge test cases: %w", err)
	}

	judgements := make([]*PlayerJudgement, 0, len(state.Players))
	for _, ps := range state.Players {
		j, err := p.judgePlayer(ctx, matchID, ps, testCases)
		if err != nil {
			p.metrics.RecordJudgingError("sandbox")
			return nil, err
		}
		judgements = append(judgements, j)
	}

	p.applyEfficiencyNormalization(judgements)
	p.applyQualityGrading(ctx, judgements, challenge)
	p.applyHintPenalty(ctx, matchID, judgements)

	result := p.buildResult(ctx, matchID, judgements)

	p.metrics.RecordJudgingDuration("all", time.Since(start))
	return result, nil
}

func (p *Pipeline) judgePlayer(ctx context.Context, matchID uuid.UUID, ps *matchstate.PlayerState, testCases []models.TestCase) (*PlayerJudgement, error) {
	j := &PlayerJudgement{PlayerID: ps.PlayerID, code: ps.Code, language: ps.Language}

	totalWeight := 0
	passedWeight := 0
	var execTimes []time.Duration

	for _, tc := range testCases {
		totalWeight += weightOrOne(tc.Weight)

		req := sandbox.ExecuteRequest{
			Language:      ps.Language,
			Code:          ps.Code,
			TestInputJSON: string(tc.InputJSON),
			TimeoutMs:     perCaseTimeoutMs,
		}

		res, err := p.sandbox.Execute(ctx, req)
		if err != nil {
			p.metrics.RecordSandboxTimeout()
			j.TestResults = append(j.TestResults, TestCaseResult{Passed: false, TimedOut: true})
			continue
		}

		passed := !res.TimedOut && structurallyEqual(res.Stdout, string(tc.ExpectedJSON))
		if passed {
			passedWeight += weightOrOne(tc.Weight)
		}
		if res.TimedOut {
			p.metrics.RecordSandboxTimeout()
		}

		execTimes = append(execTimes, res.ExecutionTime)
		j.TestResults = append(j.TestResults, TestCaseResult{
			Passed:          passed,
			ActualOutput:    res.Stdout,
			Stdout:          res.Stdout,
			Stderr:          res.Stderr,
			ExecutionTimeMs: res.ExecutionTime.Milliseconds(),
			TimedOut:        res.TimedOut,
		})
	}

	if totalWeight > 0 {
		j.CorrectnessScore = float64(passedWeight) / float64(totalWeight) * correctnessMax
	}
	j.meanExecTime = meanDuration(execTimes)

	return j, nil
}

func weightOrOne(weight int) int {
	if weight <= 0 {
		return 1
	}
	return weight
}

// structurallyEqual compares two JSON-encoded values with a deep-equal
// semantics, falling back to a literal string comparison when either
// side fails to parse as JSON.
func structurallyEqual(actual, expected string) bool {
	var a, e interface{}
	if json.Unmarshal([]byte(actual), &a) == nil && json.Unmarshal([]byte(expected), &e) == nil {
		return reflect.DeepEqual(a, e)
	}
	return actual == expected
}

func meanDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

// applyEfficiencyNormalization scores each player's mean execution time
// relative to the faster of the two players, since no optimal baseline
// is tracked per challenge.
func (p *Pipeline) applyEfficiencyNormalization(judgements []*PlayerJudgement) {
	if len(judgements) == 0 {
		return
	}
	baseline := judgements[0].meanExecTime
	for _, j := range judgements[1:] {
		if j.meanExecTime > 0 && (baseline == 0 || j.meanExecTime < baseline) {
			baseline = j.meanExecTime
		}
	}
	if baseline == 0 {
		baseline = time.Millisecond
	}

	for _, j := range judgements {
		if j.meanExecTime == 0 {
			j.EfficiencyScore = efficiencyMax
			continue
		}
		ratio := float64(baseline) / float64(j.meanExecTime)
		if ratio > 1 {
			ratio = 1
		}
		j.EfficiencyScore = ratio * efficiencyMax
	}
}

// applyQualityGrading delegates quality+creativity scoring to the
// external AI grader, falling back to deterministic defaults on failure.
func (p *Pipeline) applyQualityGrading(ctx context.Context, judgements []*PlayerJudgement, challenge *models.Challenge) {
	for _, j := range judgements {
		result, err := p.ai.AnalyzeCodeQuality(ctx, j.code, j.language, challenge.Title)
		if err != nil {
			j.QualityScore = 0.5 * qualityMax
			j.CreativityScore = 0.5 * creativityMax
			j.Feedback = "AI feedback unavailable for this submission."
			continue
		}
		j.QualityScore = float64(result.Breakdown["quality"]) / 10.0 * qualityMax
		j.CreativityScore = float64(result.Breakdown["creativity"]) / 10.0 * creativityMax
		j.Feedback = result.Feedback
	}
}

// applyHintPenalty multiplies each player's total score by the hint
// penalty factor recorded by the Hint/Coach for this match.
func (p *Pipeline) applyHintPenalty(ctx context.Context, matchID uuid.UUID, judgements []*PlayerJudgement) {
	for _, j := range judgements {
		hintsUsed, err := p.coach.HintsUsed(ctx, matchID, j.PlayerID)
		if err != nil {
			hintsUsed = 0
		}
		if hintsUsed > 3 {
			hintsUsed = 3
		}
		j.HintsUsed = hintsUsed
		j.TotalScore = j.CorrectnessScore + j.EfficiencyScore + j.QualityScore + j.CreativityScore
		j.FinalScore = j.TotalScore * (1 - 0.05*float64(hintsUsed))
	}
}

// buildResult picks the winner, computes Elo deltas, persists both
// players' rating updates in a single transaction, and assembles the
// FSM-facing result.
func (p *Pipeline) buildResult(ctx context.Context, matchID uuid.UUID, judgements []*PlayerJudgement) *matchfsm.JudgingResult {
	result := &matchfsm.JudgingResult{
		PlayerScores: make(map[uuid.UUID]int),
		PlayerDeltas: make(map[uuid.UUID]int),
		Feedback:     make(map[uuid.UUID]string),
	}

	if len(judgements) != 2 {
		result.IsFallback = true
		return result
	}

	a, b := judgements[0], judgements[1]
	for _, j := range judgements {
		result.PlayerScores[j.PlayerID] = int(math.Round(j.FinalScore))
		result.Feedback[j.PlayerID] = j.Feedback
	}

	var winner uuid.NullUUID
	if a.FinalScore > b.FinalScore {
		winner = uuid.NullUUID{UUID: a.PlayerID, Valid: true}
	} else if b.FinalScore > a.FinalScore {
		winner = uuid.NullUUID{UUID: b.PlayerID, Valid: true}
	}
	result.WinnerID = winner

	playerA, errA := p.players.GetByID(ctx, a.PlayerID)
	playerB, errB := p.players.GetByID(ctx, b.PlayerID)
	if errA != nil || errB != nil {
		result.IsFallback = true
		return result
	}

	actualA, actualB := outcomeFor(winner, a.PlayerID, b.PlayerID)
	deltaA := eloDelta(playerA.Rating, playerB.Rating, actualA)
	deltaB := eloDelta(playerB.Rating, playerA.Rating, actualB)

	result.PlayerDeltas[a.PlayerID] = deltaA
	result.PlayerDeltas[b.PlayerID] = deltaB

	txErr := p.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := p.players.UpdateRating(ctx, tx, models.RatingDelta{
			PlayerID:  a.PlayerID,
			NewRating: playerA.Rating + deltaA,
			Won:       actualA == 1,
		}); err != nil {
			return err
		}
		return p.players.UpdateRating(ctx, tx, models.RatingDelta{
			PlayerID:  b.PlayerID,
			NewRating: playerB.Rating + deltaB,
			Won:       actualB == 1,
		})
	})
	if txErr != nil {
		p.logger.WithError(txErr).WithField("match_id", matchID).Error("failed to persist rating update")
		p.metrics.RecordRatingUpdateError()
	}

	return result
}

// outcomeFor returns the {1, 0.5, 0} actual-outcome pair for Elo.
func outcomeFor(winner uuid.NullUUID, playerA, playerB uuid.UUID) (float64, float64) {
	if !winner.Valid {
		return 0.5, 0.5
	}
	if winner.UUID == playerA {
		return 1, 0
	}
	return 0, 1
}

// eloDelta computes round(K * (actual - expected)) for player i given
// opponent rating ratingJ. The expected-score curve needs a real
// exponent, so it stays in float64; the final K-scaled delta is
// rounded via decimal rather than math.Round so the .5 case always
// rounds away from zero instead of floating-point's occasional
// surprises at exact halves.
func eloDelta(ratingI, ratingJ int, actualI float64) int {
	expected := 1 / (1 + math.Pow(10, float64(ratingJ-ratingI)/400))
	delta := decimal.NewFromFloat(eloK).Mul(decimal.NewFromFloat(actualI - expected))
	return int(delta.Round(0).IntPart())
}
