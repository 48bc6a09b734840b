package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/modules/ghostrace"
)

// GhostRaceHandler handles the Ghost Race RPC surface: start_race,
// submit_race_code, abandon_race. These have no spec §6.1 client-event
// names of their own since Ghost Race is single-player and entirely
// supplemental to the main duel, so this handler follows the same
// shape as the other RPC handlers rather than a table entry.
type GhostRaceHandler struct {
	race   ghostrace.Race
	logger *logrus.Logger
}

// NewGhostRaceHandler creates a new Ghost Race RPC handler
func NewGhostRaceHandler(race ghostrace.Race, logger *logrus.Logger) *GhostRaceHandler {
	return &GhostRaceHandler{race: race, logger: logger}
}

// StartRaceRequest is the start_race event payload.
type StartRaceRequest struct {
	ChallengeID uuid.UUID  `json:"challengeId"`
	GhostID     *uuid.UUID `json:"ghostId,omitempty"`
}

// HandleStartRace starts a new Ghost Race for the calling player.
func (h *GhostRaceHandler) HandleStartRace(ctx context.Context, playerID uuid.UUID, data []byte) ([]byte, error) {
	var req StartRaceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid start_race payload")
	}

	state, err := h.race.StartRace(ctx, playerID, req.ChallengeID, req.GhostID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"player_id": playerID, "error": err}).Warn("start_race failed")
		return errResponse(err)
	}

	return successResponse(state)
}

// SubmitRaceCodeRequest is the submit_race_code event payload.
type SubmitRaceCodeRequest struct {
	RaceID   uuid.UUID `json:"raceId"`
	Code     string    `json:"code"`
	Language string    `json:"language"`
}

// HandleSubmitRaceCode submits the player's final code for a race.
func (h *GhostRaceHandler) HandleSubmitRaceCode(ctx context.Context, data []byte) ([]byte, error) {
	var req SubmitRaceCodeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid submit_race_code payload")
	}

	result, err := h.race.SubmitCode(ctx, req.RaceID, req.Code, req.Language)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"race_id": req.RaceID, "error": err}).Warn("submit_race_code failed")
		return errResponse(err)
	}

	return successResponse(result)
}

// AbandonRaceRequest is the abandon_race event payload.
type AbandonRaceRequest struct {
	RaceID uuid.UUID `json:"raceId"`
}

// HandleAbandonRace marks a race abandoned when the client sends abandon_race.
func (h *GhostRaceHandler) HandleAbandonRace(ctx context.Context, data []byte) ([]byte, error) {
	var req AbandonRaceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest("invalid abandon_race payload")
	}

	if err := h.race.Abandon(ctx, req.RaceID); err != nil {
		return errResponse(err)
	}

	return successResponse(map[string]interface{}{"abandoned": true})
}
