package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/modules/matchmaker"
)

// MatchmakingHandler handles join_queue/leave_queue RPC requests.
type MatchmakingHandler struct {
	matchmaker matchmaker.MatchmakerService
	logger     *logrus.Logger
}

// NewMatchmakingHandler creates a new matchmaking RPC handler
func NewMatchmakingHandler(matchmakerService matchmaker.MatchmakerService, logger *logrus.Logger) *MatchmakingHandler {
	return &MatchmakingHandler{matchmaker: matchmakerService, logger: logger}
}

// JoinQueueRequest is the join_queue event payload. Difficulty/Language
// filters are accepted for wire compatibility but the matchmaker's
// queue bands purely on rating, so they are not threaded any further.
type JoinQueueRequest struct {
	DisplayName string `json:"display_name"`
	Rating      int    `json:"rating"`
}

// HandleJoinQueue handles the join_queue event.
func (h *MatchmakingHandler) HandleJoinQueue(ctx context.Context, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req JoinQueueRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid join_queue payload")
	}
	if req.DisplayName == "" {
		return badRequest("display_name is required")
	}

	if err := h.matchmaker.JoinQueue(ctx, playerID, req.DisplayName, req.Rating); err != nil {
		h.logger.WithFields(logrus.Fields{"player_id": playerID, "error": err}).Warn("join_queue failed")
		return errResponse(err)
	}

	h.logger.WithFields(logrus.Fields{"player_id": playerID}).Info("player joined matchmaking queue")
	return successResponse(map[string]interface{}{"joined": true})
}

// HandleLeaveQueue handles the leave_queue event.
func (h *MatchmakingHandler) HandleLeaveQueue(ctx context.Context, playerID uuid.UUID, data []byte) ([]byte, error) {
	if err := h.matchmaker.LeaveQueue(ctx, playerID); err != nil {
		h.logger.WithFields(logrus.Fields{"player_id": playerID, "error": err}).Warn("leave_queue failed")
		return errResponse(err)
	}

	h.logger.WithFields(logrus.Fields{"player_id": playerID}).Info("player left matchmaking queue")
	return successResponse(map[string]interface{}{"left": true})
}
