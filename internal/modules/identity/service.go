// Package identity issues player identities and the token pair a
// client needs to open both the HTTP surface and the duplex event
// channel: an app token for RPC calls and a Centrifugo token the
// client presents directly to the broker at connect time.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/auth"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

const tokenDuration = 24 * time.Hour

// Service issues and refreshes player identities.
type Service interface {
	// Register creates a new player with the given display name and
	// returns a fresh token pair.
	Register(ctx context.Context, displayName string) (*AuthResult, error)

	// Reissue validates an existing app token, confirms the player
	// still exists, and returns a fresh token pair.
	Reissue(ctx context.Context, appToken string) (*AuthResult, error)
}

// AuthResult is the token pair plus the player profile returned on
// registration or reissue.
type AuthResult struct {
	Player          *models.Player `json:"player"`
	AppToken        string         `json:"app_token"`
	CentrifugoToken string         `json:"centrifugo_token"`
	ExpiresIn       int64          `json:"expires_in"`
}

type service struct {
	players repository.PlayerRepository
	jwt     *auth.JWTManager
	logger  *logrus.Logger
}

// NewService constructs an identity Service.
func NewService(players repository.PlayerRepository, jwt *auth.JWTManager, logger *logrus.Logger) Service {
	return &service{players: players, jwt: jwt, logger: logger}
}

func (s *service) Register(ctx context.Context, displayName string) (*AuthResult, error) {
	player := &models.Player{
		ID:          uuid.New(),
		DisplayName: displayName,
		Rating:      1000,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.players.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"player_id": player.ID, "display_name": displayName}).Info("player registered")

	return s.tokensFor(player)
}

func (s *service) Reissue(ctx context.Context, appToken string) (*AuthResult, error) {
	claims, err := s.jwt.ValidateAppToken(appToken)
	if err != nil {
		return nil, fmt.Errorf("invalid app token: %w", err)
	}

	player, err := s.players.GetByID(ctx, claims.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	return s.tokensFor(player)
}

func (s *service) tokensFor(player *models.Player) (*AuthResult, error) {
	appToken, err := s.jwt.GenerateAppToken(player.ID, tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate app token: %w", err)
	}

	centrifugoToken, err := s.jwt.GenerateCentrifugoToken(player.ID, tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate centrifugo token: %w", err)
	}

	return &AuthResult{
		Player:          player,
		AppToken:        appToken,
		CentrifugoToken: centrifugoToken,
		ExpiresIn:       int64(tokenDuration.Seconds()),
	}, nil
}
