package http

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

// LeaderboardHandler serves the top-rated players.
type LeaderboardHandler struct {
	players repository.PlayerRepository
	logger  *logrus.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(players repository.PlayerRepository, logger *logrus.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{players: players, logger: logger}
}

// GetLeaderboard handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	top, err := h.players.GetLeaderboard(ctx, 50)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Error("failed to load leaderboard")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(AuthResponse{Success: false, Error: "failed to load leaderboard"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(AuthResponse{Success: true, Data: top}); err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Error("failed to encode leaderboard response")
	}
}
