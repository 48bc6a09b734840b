package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/modules/roomfabric"
)

// SpectateHandler handles join_spectate/spectator_message/
// spectator_reaction RPC requests.
type SpectateHandler struct {
	rooms  roomfabric.Fabric
	logger *logrus.Logger
}

// NewSpectateHandler creates a new spectator RPC handler
func NewSpectateHandler(rooms roomfabric.Fabric, logger *logrus.Logger) *SpectateHandler {
	return &SpectateHandler{rooms: rooms, logger: logger}
}

// JoinSpectateRequest is the join_spectate event payload.
type JoinSpectateRequest struct {
	MatchID uuid.UUID `json:"matchId"`
}

// HandleJoinSpectate subscribes the connection to a match's spectator room.
func (h *SpectateHandler) HandleJoinSpectate(ctx context.Context, connID string, data []byte) ([]byte, error) {
	var req JoinSpectateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid join_spectate payload")
	}

	if err := h.rooms.Join(ctx, connID, roomfabric.MatchSpectatorRoom(req.MatchID)); err != nil {
		return errResponse(err)
	}

	return successResponse(map[string]interface{}{"joined": true})
}

// SpectatorMessageRequest is the spectator_message event payload.
type SpectatorMessageRequest struct {
	MatchID uuid.UUID `json:"matchId"`
	Message string    `json:"message"`
}

// HandleSpectatorMessage relays a spectator chat message to the spectator room.
func (h *SpectateHandler) HandleSpectatorMessage(ctx context.Context, connID string, data []byte) ([]byte, error) {
	var req SpectatorMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid spectator_message payload")
	}

	if err := h.rooms.BroadcastExcept(ctx, roomfabric.MatchSpectatorRoom(req.MatchID), connID, "spectator_message", map[string]interface{}{"message": req.Message}); err != nil {
		return errResponse(err)
	}

	return successResponse(map[string]interface{}{"sent": true})
}

// SpectatorReactionRequest is the spectator_reaction event payload.
type SpectatorReactionRequest struct {
	MatchID uuid.UUID `json:"matchId"`
	Emoji   string    `json:"emoji"`
}

// HandleSpectatorReaction relays a spectator reaction to the spectator room.
func (h *SpectateHandler) HandleSpectatorReaction(ctx context.Context, connID string, data []byte) ([]byte, error) {
	var req SpectatorReactionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid spectator_reaction payload")
	}

	if err := h.rooms.BroadcastExcept(ctx, roomfabric.MatchSpectatorRoom(req.MatchID), connID, "spectator_reaction", map[string]interface{}{"emoji": req.Emoji}); err != nil {
		return errResponse(err)
	}

	return successResponse(map[string]interface{}{"sent": true})
}
