package matchfsm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/centrifugo"
	"github.com/codeduel/match-core/internal/config"
	"github.com/codeduel/match-core/internal/constants"
	"github.com/codeduel/match-core/internal/modules/matchmaker"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/modules/powerup"
	"github.com/codeduel/match-core/internal/modules/session"
	"github.com/codeduel/match-core/internal/storage/postgres"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

// Lobby implements matchmaker.MatchCreator: it turns a pairing decision
// into a durable Match row, live MatchState, and a match_found
// notification delivered to each player's personal connection.
type Lobby struct {
	state      matchstate.Store
	matches    repository.MatchRepository
	challenges repository.ChallengeRepository
	players    repository.PlayerRepository
	sessions   session.Directory
	centrifugo *centrifugo.Client
	powerup    powerup.Engine
	db         *postgres.DB
	cfg        *config.Config
	logger     *logrus.Logger
}

var _ matchmaker.MatchCreator = (*Lobby)(nil)

// NewLobby constructs the matchmaker-facing lobby/match-creation step.
func NewLobby(state matchstate.Store, matches repository.MatchRepository, challenges repository.ChallengeRepository, players repository.PlayerRepository, sessions session.Directory, centrifugoClient *centrifugo.Client, powerUp powerup.Engine, db *postgres.DB, cfg *config.Config, logger *logrus.Logger) *Lobby {
	return &Lobby{
		state:      state,
		matches:    matches,
		challenges: challenges,
		players:    players,
		sessions:   sessions,
		centrifugo: centrifugoClient,
		powerup:    powerUp,
		db:         db,
		cfg:        cfg,
		logger:     logger,
	}
}

// CreateMatch selects a challenge, creates the durable Match row and
// live MatchState, and notifies both players via their personal
// channels, per §4.4's pairing steps (c)-(e).
func (l *Lobby) CreateMatch(ctx context.Context, playerOneID, playerTwoID uuid.UUID) error {
	challenge, err := l.challenges.GetRandom(ctx)
	if err != nil {
		return fmt.Errorf("failed to select challenge for match: %w", err)
	}

	matchID := uuid.New()
	match := &models.Match{
		ID:          matchID,
		ChallengeID: challenge.ID,
		Difficulty:  challenge.Difficulty,
		Status:      "lobby",
		PlayerOneID: playerOneID,
		PlayerTwoID: playerTwoID,
		CreatedAt:   time.Now(),
	}

	if err := l.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return l.matches.Create(ctx, match)
	}); err != nil {
		return fmt.Errorf("failed to create match row: %w", err)
	}

	languages := map[uuid.UUID]string{
		playerOneID: constants.LanguagePython,
		playerTwoID: constants.LanguagePython,
	}
	if _, err := l.state.CreateState(ctx, matchID, challenge.ID, []uuid.UUID{playerOneID, playerTwoID}, languages, l.cfg.DefaultMatchTimeLimitSecs); err != nil {
		return fmt.Errorf("failed to create match state: %w", err)
	}

	if err := l.powerup.AllocateForMatch(ctx, matchID, []uuid.UUID{playerOneID, playerTwoID}); err != nil {
		return fmt.Errorf("failed to allocate power-ups for match: %w", err)
	}

	l.notifyMatchFound(ctx, matchID, challenge, playerOneID, playerTwoID)
	l.notifyMatchFound(ctx, matchID, challenge, playerTwoID, playerOneID)

	l.logger.WithFields(logrus.Fields{
		"match_id":     matchID,
		"challenge_id": challenge.ID,
		"player_one":   playerOneID,
		"player_two":   playerTwoID,
	}).Info("match created from matchmaking pairing")

	return nil
}

// notifyMatchFound emits match_found to recipientID's personal
// connection channel with opponentID's minimal profile.
func (l *Lobby) notifyMatchFound(ctx context.Context, matchID uuid.UUID, challenge *models.Challenge, recipientID, opponentID uuid.UUID) {
	connID, ok, err := l.sessions.Lookup(ctx, recipientID)
	if err != nil || !ok {
		l.logger.WithFields(logrus.Fields{"player_id": recipientID, "match_id": matchID}).Warn("no live connection for match_found notification")
		return
	}

	opponent, err := l.players.GetByID(ctx, opponentID)
	if err != nil {
		l.logger.WithError(err).WithField("player_id", opponentID).Warn("failed to load opponent profile for match_found")
		return
	}

	payload := map[string]interface{}{
		"match_id": matchID,
		"challenge": map[string]interface{}{
			"id":         challenge.ID,
			"title":      challenge.Title,
			"difficulty": challenge.Difficulty,
		},
		"opponent": map[string]interface{}{
			"id":           opponent.ID,
			"display_name": opponent.DisplayName,
			"rating":       opponent.Rating,
		},
	}

	if err := l.centrifugo.Publish(ctx, "conn:"+connID, "match_found", payload); err != nil {
		l.logger.WithError(err).WithField("player_id", recipientID).Warn("failed to publish match_found")
	}
}
