package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/modules/powerup"
)

// PowerUpHandler handles activate_powerup RPC requests.
type PowerUpHandler struct {
	engine powerup.Engine
	logger *logrus.Logger
}

// NewPowerUpHandler creates a new power-up RPC handler
func NewPowerUpHandler(engine powerup.Engine, logger *logrus.Logger) *PowerUpHandler {
	return &PowerUpHandler{engine: engine, logger: logger}
}

// ActivatePowerUpRequest is the activate_powerup event payload.
type ActivatePowerUpRequest struct {
	MatchID     uuid.UUID `json:"matchId"`
	PowerUpType string    `json:"powerUpType"`
}

// HandleActivatePowerUp activates a power-up for the calling player.
// The engine itself publishes powerup_activated/opponent_used_powerup
// to the relevant channels, so this handler only needs to ack or
// surface the typed error.
func (h *PowerUpHandler) HandleActivatePowerUp(ctx context.Context, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req ActivatePowerUpRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid activate_powerup payload")
	}

	if err := h.engine.Activate(ctx, req.MatchID, playerID, req.PowerUpType); err != nil {
		h.logger.WithFields(logrus.Fields{"player_id": playerID, "match_id": req.MatchID, "type": req.PowerUpType, "error": err}).Warn("powerup activation failed")
		return errResponse(err)
	}

	return successResponse(map[string]interface{}{"activated": true})
}
