package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/modules/matchfsm"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/modules/powerup"
	"github.com/codeduel/match-core/internal/modules/replay"
	"github.com/codeduel/match-core/internal/modules/roomfabric"
	"github.com/codeduel/match-core/internal/sandbox"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

// MatchHandler handles join_lobby/ready_up/code_update/run_code/
// submit_solution RPC requests — the live-play slice of the duel.
type MatchHandler struct {
	fsm        matchfsm.FSM
	state      matchstate.Store
	rooms      roomfabric.Fabric
	challenges repository.ChallengeRepository
	sandbox    sandbox.Executor
	powerup    powerup.Engine
	replay     replay.Log
	throttle   *codeUpdateThrottle
	logger     *logrus.Logger
}

// NewMatchHandler creates a new match RPC handler
func NewMatchHandler(fsm matchfsm.FSM, state matchstate.Store, rooms roomfabric.Fabric, challenges repository.ChallengeRepository, sandboxExecutor sandbox.Executor, powerupEngine powerup.Engine, replayLog replay.Log, logger *logrus.Logger) *MatchHandler {
	return &MatchHandler{
		fsm:        fsm,
		state:      state,
		rooms:      rooms,
		challenges: challenges,
		sandbox:    sandboxExecutor,
		powerup:    powerupEngine,
		replay:     replayLog,
		throttle:   newCodeUpdateThrottle(),
		logger:     logger,
	}
}

// JoinLobbyRequest is the join_lobby event payload.
type JoinLobbyRequest struct {
	MatchID uuid.UUID `json:"matchId"`
}

// HandleJoinLobby subscribes the connection to a match's room.
func (h *MatchHandler) HandleJoinLobby(ctx context.Context, connID string, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req JoinLobbyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid join_lobby payload")
	}

	if err := h.rooms.Join(ctx, connID, roomfabric.MatchRoom(req.MatchID)); err != nil {
		return errResponse(err)
	}

	_ = h.rooms.BroadcastExcept(ctx, roomfabric.MatchRoom(req.MatchID), connID, "opponent_joined", map[string]interface{}{"playerId": playerID})

	return successResponse(map[string]interface{}{"joined": true})
}

// ReadyUpRequest is the ready_up event payload.
type ReadyUpRequest struct {
	MatchID uuid.UUID `json:"matchId"`
}

// HandleReadyUp marks the caller ready.
func (h *MatchHandler) HandleReadyUp(ctx context.Context, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req ReadyUpRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid ready_up payload")
	}

	if err := h.fsm.ReadyUp(ctx, req.MatchID, playerID); err != nil {
		return errResponse(err)
	}

	_ = h.rooms.Broadcast(ctx, roomfabric.MatchRoom(req.MatchID), "opponent_ready", map[string]interface{}{"isReady": true})

	resp := map[string]interface{}{"ready": true}
	if st, err := h.state.GetState(ctx, req.MatchID); err == nil && st.CountdownEndsAt != nil {
		remaining := time.Until(*st.CountdownEndsAt)
		if remaining < 0 {
			remaining = 0
		}
		resp["countdownRemainingMs"] = remaining.Milliseconds()
	}

	return successResponse(resp)
}

// CodeUpdateRequest is the code_update event payload.
type CodeUpdateRequest struct {
	MatchID uuid.UUID         `json:"mid"`
	Code    string            `json:"code"`
	Cursor  matchstate.Cursor `json:"cursor"`
}

// HandleCodeUpdate mirrors a throttled edit to the opponent and the
// replay log.
func (h *MatchHandler) HandleCodeUpdate(ctx context.Context, connID string, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req CodeUpdateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid code_update payload")
	}

	if !h.throttle.Allow(req.MatchID, playerID) {
		return successResponse(map[string]interface{}{"accepted": false})
	}

	if err := h.state.SetCode(ctx, req.MatchID, playerID, req.Code, req.Cursor); err != nil {
		return errResponse(err)
	}

	st, err := h.state.GetState(ctx, req.MatchID)
	if err == nil && st.StartedAt != nil {
		_ = h.replay.Append(req.MatchID, &playerID, *st.StartedAt, "code_update", map[string]interface{}{"code": req.Code, "cursor": req.Cursor})
	}

	_ = h.rooms.BroadcastExcept(ctx, roomfabric.MatchRoom(req.MatchID), connID, "opponent_code_update", map[string]interface{}{"code": req.Code, "cursor": req.Cursor})

	return successResponse(map[string]interface{}{"accepted": true})
}

// RunCodeRequest is the run_code event payload.
type RunCodeRequest struct {
	MatchID uuid.UUID `json:"mid"`
	Code    string    `json:"code"`
}

// HandleRunCode executes the submitted code against the challenge's
// visible test cases, surfacing shield state per spec's Debug Shield
// lifecycle.
func (h *MatchHandler) HandleRunCode(ctx context.Context, connID string, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req RunCodeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid run_code payload")
	}

	st, err := h.state.GetState(ctx, req.MatchID)
	if err != nil {
		return errResponse(err)
	}
	if st.Status != "active" {
		return errResponse(apperr.New(apperr.CodeMatchNotActive, "match is not active"))
	}
	ps, ok := st.Players[playerID.String()]
	if !ok {
		return errResponse(apperr.New(apperr.CodeNotAParticipant, "player is not in this match"))
	}

	challenge, err := h.challenges.GetByID(ctx, st.ChallengeID)
	if err != nil {
		return errResponse(err)
	}
	cases, err := challenge.GetTestCases()
	if err != nil {
		return errResponse(err)
	}

	shieldResult, shieldErr := h.powerup.ConsumeShieldCharge(ctx, req.MatchID, playerID)
	shielded := shieldErr == nil && shieldResult != nil && shieldResult.IsActive

	results := make([]testCaseResult, 0, len(cases))
	for _, tc := range cases {
		if tc.Hidden {
			continue
		}
		result, execErr := h.sandbox.Execute(ctx, sandbox.ExecuteRequest{
			Language:      ps.Language,
			Code:          req.Code,
			TestInputJSON: string(tc.InputJSON),
			TimeoutMs:     15000,
		})
		if execErr != nil {
			results = append(results, testCaseResult{Passed: false, Shielded: shielded})
			continue
		}
		passed := !result.TimedOut && result.ExitCode == 0
		results = append(results, testCaseResult{
			Passed:          passed,
			Stdout:          result.Stdout,
			Stderr:          result.Stderr,
			ExecutionTimeMs: int(result.ExecutionTime.Milliseconds()),
			TimedOut:        result.TimedOut,
			Shielded:        shielded && !passed,
		})
	}

	if st.StartedAt != nil {
		_ = h.replay.Append(req.MatchID, &playerID, *st.StartedAt, "test_run", map[string]interface{}{"results": results})
	}

	_ = h.rooms.BroadcastExcept(ctx, roomfabric.MatchRoom(req.MatchID), connID, "opponent_test_run", map[string]interface{}{"isRunning": false})

	shieldCharges := 0
	if shieldResult != nil {
		shieldCharges = shieldResult.RemainingCharges
	}

	return successResponse(map[string]interface{}{
		"results":                results,
		"debugShieldActive":      shielded,
		"shieldChargesRemaining": shieldCharges,
	})
}

// testCaseResult is one case of run_code's response. Its fields and JSON
// tags are its own and differ from the judging pipeline's per-case record.
type testCaseResult struct {
	Passed          bool   `json:"passed"`
	Stdout          string `json:"stdout,omitempty"`
	Stderr          string `json:"stderr,omitempty"`
	ExecutionTimeMs int    `json:"executionTime,omitempty"`
	TimedOut        bool   `json:"timedOut,omitempty"`
	Shielded        bool   `json:"shielded,omitempty"`
}

// SubmitSolutionRequest is the submit_solution event payload.
type SubmitSolutionRequest struct {
	MatchID uuid.UUID `json:"mid"`
	Code    string    `json:"code"`
}

// HandleSubmitSolution records the final submission and triggers
// completion once both players have submitted.
func (h *MatchHandler) HandleSubmitSolution(ctx context.Context, connID string, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req SubmitSolutionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid submit_solution payload")
	}

	st, err := h.state.GetState(ctx, req.MatchID)
	if err != nil {
		return errResponse(err)
	}
	if err := h.state.SetCode(ctx, req.MatchID, playerID, req.Code, matchstate.Cursor{}); err != nil {
		return errResponse(err)
	}
	if st.StartedAt != nil {
		_ = h.replay.Append(req.MatchID, &playerID, *st.StartedAt, "submission", map[string]interface{}{"code": req.Code, "at": time.Now()})
	}

	if err := h.fsm.Submit(ctx, req.MatchID, playerID); err != nil {
		return errResponse(err)
	}

	_ = h.rooms.BroadcastExcept(ctx, roomfabric.MatchRoom(req.MatchID), connID, "opponent_submitted", map[string]interface{}{})

	return successResponse(map[string]interface{}{"submitted": true})
}
