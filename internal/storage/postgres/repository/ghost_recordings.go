package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

// GhostRecordingRepository defines the interface for ghost recording
// data access, grounded on the teacher's GhostReplay repository shape.
type GhostRecordingRepository interface {
	// Create persists a new ghost recording
	Create(ctx context.Context, recording *models.GhostRecording) error

	// GetByID retrieves a ghost recording by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.GhostRecording, error)

	// GetRandomForChallenge retrieves a random ghost recording for a
	// given challenge, used to populate a solo Ghost Race when the
	// player doesn't supply one explicitly.
	GetRandomForChallenge(ctx context.Context, challengeID uuid.UUID) (*models.GhostRecording, error)
}

// ghostRecordingRepository implements GhostRecordingRepository
type ghostRecordingRepository struct {
	db *sqlx.DB
}

// NewGhostRecordingRepository creates a new ghost recording repository
func NewGhostRecordingRepository(db *sqlx.DB) GhostRecordingRepository {
	return &ghostRecordingRepository{db: db}
}

// Create persists a new ghost recording
func (r *ghostRecordingRepository) Create(ctx context.Context, recording *models.GhostRecording) error {
	query := `
		INSERT INTO ghost_recordings (id, source_match_id, source_player_id, difficulty,
		                              challenge_id, final_score, timeline, created_at)
		VALUES (:id, :source_match_id, :source_player_id, :difficulty,
		        :challenge_id, :final_score, :timeline, :created_at)`

	_, err := r.db.NamedExecContext(ctx, query, recording)
	return err
}

// GetByID retrieves a ghost recording by ID
func (r *ghostRecordingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GhostRecording, error) {
	recording := &models.GhostRecording{}
	query := `
		SELECT id, source_match_id, source_player_id, difficulty, challenge_id, final_score, timeline, created_at
		FROM ghost_recordings
		WHERE id = $1`

	err := r.db.GetContext(ctx, recording, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return recording, nil
}

// GetRandomForChallenge retrieves a random ghost recording for a challenge
func (r *ghostRecordingRepository) GetRandomForChallenge(ctx context.Context, challengeID uuid.UUID) (*models.GhostRecording, error) {
	recording := &models.GhostRecording{}
	query := `
		SELECT id, source_match_id, source_player_id, difficulty, challenge_id, final_score, timeline, created_at
		FROM ghost_recordings
		WHERE challenge_id = $1
		ORDER BY RANDOM()
		LIMIT 1`

	err := r.db.GetContext(ctx, recording, query, challengeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return recording, nil
}
