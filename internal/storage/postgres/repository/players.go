package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

// PlayerRepository defines the interface for player data access
type PlayerRepository interface {
	// Create creates a new player
	Create(ctx context.Context, player *models.Player) error

	// GetByID retrieves a player by ID
	GetByID(ctx context.Context, playerID uuid.UUID) (*models.Player, error)

	// UpdateRating atomically updates a player's rating and win/loss tally
	UpdateRating(ctx context.Context, tx *sqlx.Tx, delta models.RatingDelta) error

	// GetLeaderboard retrieves the top players ordered by rating
	GetLeaderboard(ctx context.Context, limit int) ([]*models.Player, error)
}

// playerRepository implements PlayerRepository
type playerRepository struct {
	db *sqlx.DB
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *sqlx.DB) PlayerRepository {
	return &playerRepository{db: db}
}

// Create creates a new player
func (r *playerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (id, display_name, rating, matches_won, matches_lost, created_at, updated_at)
		VALUES (:id, :display_name, :rating, :matches_won, :matches_lost, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, query, player)
	return err
}

// GetByID retrieves a player by ID
func (r *playerRepository) GetByID(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	player := &models.Player{}
	query := `
		SELECT id, display_name, rating, matches_won, matches_lost, created_at, updated_at
		FROM players
		WHERE id = $1`

	err := r.db.GetContext(ctx, player, query, playerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return player, nil
}

// UpdateRating atomically updates a player's rating and win/loss tally
// within the caller's transaction. This is the per-player half of the
// Judging Pipeline's "update both players' ratings atomically"
// requirement; the caller wraps two calls to this method (one per
// player) in a single db.WithTransaction, following the teacher's
// settlement.go pattern of multiple repo calls inside one tx.
func (r *playerRepository) UpdateRating(ctx context.Context, tx *sqlx.Tx, delta models.RatingDelta) error {
	query := `
		UPDATE players
		SET rating = $2,
		    matches_won = matches_won + CASE WHEN $3 THEN 1 ELSE 0 END,
		    matches_lost = matches_lost + CASE WHEN $3 THEN 0 ELSE 1 END,
		    updated_at = NOW()
		WHERE id = $1`

	_, err := tx.ExecContext(ctx, query, delta.PlayerID, delta.NewRating, delta.Won)
	return err
}

// GetLeaderboard retrieves the top players ordered by rating
func (r *playerRepository) GetLeaderboard(ctx context.Context, limit int) ([]*models.Player, error) {
	players := []*models.Player{}
	query := `
		SELECT id, display_name, rating, matches_won, matches_lost, created_at, updated_at
		FROM players
		ORDER BY rating DESC
		LIMIT $1`

	err := r.db.SelectContext(ctx, &players, query, limit)
	return players, err
}
