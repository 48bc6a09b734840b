// Package hint implements C9 Hint/Coach: per-(match, player) cooldown
// and quota state, hidden-test redaction of AI-generated hint content,
// and the scoring penalty hints apply at final judging.
package hint

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/aigrader"
	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/config"
	"github.com/codeduel/match-core/internal/metrics"
)

const maxHintsPerMatch = 3

// TestCase is the subset of a challenge's hidden test case relevant to
// hint redaction: its raw JSON input and expected output.
type TestCase struct {
	InputJSON    string
	ExpectedJSON string
}

// Status mirrors CanRequestHint's return shape.
type Status struct {
	Allowed           bool   `json:"allowed"`
	CooldownRemaining int    `json:"cooldownRemaining"`
	HintsRemaining    int    `json:"hintsRemaining"`
	Reason            string `json:"reason,omitempty"`
}

type hintState struct {
	HintsUsed  int       `json:"hints_used"`
	LastHintAt time.Time `json:"last_hint_at"`
}

// Coach is the C9 Hint/Coach contract.
type Coach interface {
	// CanRequestHint reports whether a player may request another hint now.
	CanRequestHint(ctx context.Context, matchID, playerID uuid.UUID) (*Status, error)

	// RequestHint generates, redacts, and records a hint if allowed.
	RequestHint(ctx context.Context, matchID, playerID uuid.UUID, code, language, challengeContext string, hiddenTests []TestCase) (*aigrader.HintResult, error)

	// HintsUsed returns the number of hints a player has used this match,
	// for the judging pipeline's scoring penalty.
	HintsUsed(ctx context.Context, matchID, playerID uuid.UUID) (int, error)
}

type coach struct {
	redis   *redis.Client
	ai      aigrader.Client
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewCoach constructs a Redis-backed Hint/Coach.
func NewCoach(redisClient *redis.Client, ai aigrader.Client, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) Coach {
	return &coach{redis: redisClient, ai: ai, cfg: cfg, logger: logger, metrics: m}
}

func hintKey(matchID, playerID uuid.UUID) string {
	return fmt.Sprintf("match:%s:hints:%s", matchID, playerID)
}

func (c *coach) getState(ctx context.Context, matchID, playerID uuid.UUID) (*hintState, error) {
	data, err := c.redis.Get(ctx, hintKey(matchID, playerID)).Result()
	if err == redis.Nil {
		return &hintState{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to read hint state", err)
	}
	var state hintState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to unmarshal hint state", err)
	}
	return &state, nil
}

func (c *coach) putState(ctx context.Context, matchID, playerID uuid.UUID, state *hintState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to marshal hint state", err)
	}
	return c.redis.Set(ctx, hintKey(matchID, playerID), data, 0).Err()
}

// CanRequestHint reports allowed=true only when the player has quota
// remaining and is outside the cooldown window.
func (c *coach) CanRequestHint(ctx context.Context, matchID, playerID uuid.UUID) (*Status, error) {
	state, err := c.getState(ctx, matchID, playerID)
	if err != nil {
		return nil, err
	}

	remaining := maxHintsPerMatch - state.HintsUsed
	if remaining <= 0 {
		return &Status{Allowed: false, HintsRemaining: 0, Reason: "hint limit reached"}, nil
	}

	if !state.LastHintAt.IsZero() {
		cooldownEnd := state.LastHintAt.Add(c.cfg.HintCooldown)
		if remainingCooldown := time.Until(cooldownEnd); remainingCooldown > 0 {
			return &Status{
				Allowed:           false,
				CooldownRemaining: int(remainingCooldown.Milliseconds()),
				HintsRemaining:    remaining,
				Reason:            "hint on cooldown",
			}, nil
		}
	}

	return &Status{Allowed: true, HintsRemaining: remaining}, nil
}

// RequestHint generates a hint via the AI grader/hinter, redacts any
// hidden-test leakage, and only then records the hint as consumed — a
// failed AI call must never decrement the player's remaining allowance.
func (c *coach) RequestHint(ctx context.Context, matchID, playerID uuid.UUID, code, language, challengeContext string, hiddenTests []TestCase) (*aigrader.HintResult, error) {
	status, err := c.CanRequestHint(ctx, matchID, playerID)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		if status.CooldownRemaining > 0 {
			return nil, apperr.New(apperr.CodeHintOnCooldown, status.Reason)
		}
		return nil, apperr.New(apperr.CodeHintQuotaExceeded, status.Reason)
	}

	hintLevel := maxHintsPerMatch - status.HintsRemaining + 1
	result, err := c.ai.GenerateHint(ctx, code, language, challengeContext, hintLevel)
	if err != nil {
		c.metrics.RecordHintRequest("failed")
		return nil, apperr.Wrap(apperr.CodeGraderUnavailable, "hint generation failed", err)
	}

	result.Content = redact(result.Content, hiddenTests)

	state, err := c.getState(ctx, matchID, playerID)
	if err != nil {
		return nil, err
	}
	state.HintsUsed++
	state.LastHintAt = time.Now()
	if err := c.putState(ctx, matchID, playerID, state); err != nil {
		return nil, err
	}

	c.metrics.RecordHintRequest("success")
	return result, nil
}

// HintsUsed returns the number of hints a player has used this match.
func (c *coach) HintsUsed(ctx context.Context, matchID, playerID uuid.UUID) (int, error) {
	state, err := c.getState(ctx, matchID, playerID)
	if err != nil {
		return 0, err
	}
	return state.HintsUsed, nil
}

// redact replaces any substring of the hint content that case-insensitively
// matches a hidden test case's JSON input or expected output, for strings
// longer than 2 characters, with "[REDACTED]".
func redact(content string, hiddenTests []TestCase) string {
	for _, tc := range hiddenTests {
		content = redactSubstring(content, tc.InputJSON)
		content = redactSubstring(content, tc.ExpectedJSON)
	}
	return content
}

func redactSubstring(content, secret string) string {
	secret = strings.TrimSpace(secret)
	if len(secret) <= 2 {
		return content
	}
	pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(secret))
	return pattern.ReplaceAllString(content, "[REDACTED]")
}
