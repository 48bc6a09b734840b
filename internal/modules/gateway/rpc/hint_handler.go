package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/modules/hint"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

// HintHandler handles request_hint RPC requests.
type HintHandler struct {
	coach      hint.Coach
	state      matchstate.Store
	challenges repository.ChallengeRepository
	logger     *logrus.Logger
}

// NewHintHandler creates a new hint RPC handler
func NewHintHandler(coach hint.Coach, state matchstate.Store, challenges repository.ChallengeRepository, logger *logrus.Logger) *HintHandler {
	return &HintHandler{coach: coach, state: state, challenges: challenges, logger: logger}
}

// RequestHintRequest is the request_hint event payload.
type RequestHintRequest struct {
	MatchID     uuid.UUID `json:"matchId"`
	CurrentCode string    `json:"currentCode"`
	Language    string    `json:"language"`
}

// HandleRequestHint generates a redacted hint for the calling player.
func (h *HintHandler) HandleRequestHint(ctx context.Context, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req RequestHintRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid request_hint payload")
	}

	st, err := h.state.GetState(ctx, req.MatchID)
	if err != nil {
		return errResponse(err)
	}

	challenge, err := h.challenges.GetByID(ctx, st.ChallengeID)
	if err != nil {
		return errResponse(err)
	}
	cases, err := challenge.GetTestCases()
	if err != nil {
		return errResponse(err)
	}

	hiddenTests := make([]hint.TestCase, 0, len(cases))
	for _, tc := range cases {
		if tc.Hidden {
			hiddenTests = append(hiddenTests, hint.TestCase{InputJSON: string(tc.InputJSON), ExpectedJSON: string(tc.ExpectedJSON)})
		}
	}

	result, err := h.coach.RequestHint(ctx, req.MatchID, playerID, req.CurrentCode, req.Language, challenge.Title, hiddenTests)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"player_id": playerID, "match_id": req.MatchID, "error": err}).Warn("hint request failed")
		return errResponse(err)
	}

	return successResponse(map[string]interface{}{"hint": result})
}
