package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	// Create creates a new match
	Create(ctx context.Context, match *models.Match) error

	// GetByID retrieves a match by ID
	GetByID(ctx context.Context, matchID uuid.UUID) (*models.Match, error)

	// UpdateStatus updates the match status
	UpdateStatus(ctx context.Context, matchID uuid.UUID, status string) error

	// SetStartTime sets the match start timestamp
	SetStartTime(ctx context.Context, matchID uuid.UUID) error

	// Complete marks a match completed within the caller's transaction,
	// recording the winner and end reason alongside the rating updates.
	Complete(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, winnerID uuid.NullUUID, endReason string) error

	// GetActiveMatches retrieves all matches currently in progress
	GetActiveMatches(ctx context.Context) ([]*models.Match, error)

	// GetMatchHistory retrieves match history for a player with pagination
	GetMatchHistory(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]*models.Match, error)

	// GetDifficultyStats retrieves aggregate statistics for a difficulty tier
	GetDifficultyStats(ctx context.Context, difficulty string) (*models.MatchHistoryStats, error)
}

// matchRepository implements MatchRepository
type matchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &matchRepository{db: db}
}

// Create creates a new match
func (r *matchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (id, challenge_id, difficulty, status, player_one_id, player_two_id,
		                     winner_id, end_reason, started_at, completed_at, created_at)
		VALUES (:id, :challenge_id, :difficulty, :status, :player_one_id, :player_two_id,
		        :winner_id, :end_reason, :started_at, :completed_at, :created_at)`

	_, err := r.db.NamedExecContext(ctx, query, match)
	return err
}

// GetByID retrieves a match by ID
func (r *matchRepository) GetByID(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	match := &models.Match{}
	query := `
		SELECT id, challenge_id, difficulty, status, player_one_id, player_two_id,
		       winner_id, end_reason, started_at, completed_at, created_at
		FROM matches
		WHERE id = $1`

	err := r.db.GetContext(ctx, match, query, matchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return match, nil
}

// UpdateStatus updates the match status
func (r *matchRepository) UpdateStatus(ctx context.Context, matchID uuid.UUID, status string) error {
	query := `UPDATE matches SET status = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, matchID, status)
	return err
}

// SetStartTime sets the match start timestamp
func (r *matchRepository) SetStartTime(ctx context.Context, matchID uuid.UUID) error {
	query := `UPDATE matches SET started_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, matchID)
	return err
}

// Complete marks a match completed within the caller's transaction
func (r *matchRepository) Complete(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, winnerID uuid.NullUUID, endReason string) error {
	query := `
		UPDATE matches
		SET status = $2, winner_id = $3, end_reason = $4, completed_at = NOW()
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, matchID, models.MatchStatusCompleted, winnerID, endReason)
	return err
}

// GetActiveMatches retrieves all matches currently in progress
func (r *matchRepository) GetActiveMatches(ctx context.Context) ([]*models.Match, error) {
	matches := []*models.Match{}
	query := `
		SELECT id, challenge_id, difficulty, status, player_one_id, player_two_id,
		       winner_id, end_reason, started_at, completed_at, created_at
		FROM matches
		WHERE status IN ('LOBBY', 'COUNTDOWN', 'ACTIVE')
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &matches, query)
	return matches, err
}

// GetMatchHistory retrieves match history for a player with pagination
func (r *matchRepository) GetMatchHistory(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]*models.Match, error) {
	matches := []*models.Match{}
	query := `
		SELECT id, challenge_id, difficulty, status, player_one_id, player_two_id,
		       winner_id, end_reason, started_at, completed_at, created_at
		FROM matches
		WHERE player_one_id = $1 OR player_two_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &matches, query, playerID, limit, offset)
	return matches, err
}

// GetDifficultyStats retrieves aggregate statistics for a difficulty tier
func (r *matchRepository) GetDifficultyStats(ctx context.Context, difficulty string) (*models.MatchHistoryStats, error) {
	stats := &models.MatchHistoryStats{Difficulty: difficulty}

	query := `
		SELECT
			COUNT(*) as total_matches,
			COUNT(CASE WHEN status IN ('LOBBY', 'COUNTDOWN', 'ACTIVE') THEN 1 END) as active_matches,
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at))), 0) as avg_duration_secs
		FROM matches
		WHERE difficulty = $1`

	row := r.db.QueryRowContext(ctx, query, difficulty)
	err := row.Scan(&stats.TotalMatches, &stats.ActiveMatches, &stats.AvgDurationSecs)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
