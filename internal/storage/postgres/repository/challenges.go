package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

// ChallengeRepository persists and serves coding challenges.
type ChallengeRepository interface {
	GetByID(ctx context.Context, challengeID uuid.UUID) (*models.Challenge, error)

	// GetRandomByDifficulty picks a challenge uniformly at random from
	// the published set matching difficulty, for the matchmaker's
	// challenge-selection step.
	GetRandomByDifficulty(ctx context.Context, difficulty string) (*models.Challenge, error)

	// GetRandom picks a challenge uniformly at random across all
	// difficulties, for pairings with no difficulty filter.
	GetRandom(ctx context.Context) (*models.Challenge, error)
}

type challengeRepository struct {
	db *sqlx.DB
}

// NewChallengeRepository constructs a sqlx-backed ChallengeRepository.
func NewChallengeRepository(db *sqlx.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) GetByID(ctx context.Context, challengeID uuid.UUID) (*models.Challenge, error) {
	var challenge models.Challenge
	query := `SELECT id, title, difficulty, test_cases, reference_solution, reference_language FROM challenges WHERE id = $1`
	if err := r.db.GetContext(ctx, &challenge, query, challengeID); err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &challenge, nil
}

func (r *challengeRepository) GetRandomByDifficulty(ctx context.Context, difficulty string) (*models.Challenge, error) {
	var challenge models.Challenge
	query := `SELECT id, title, difficulty, test_cases, reference_solution, reference_language FROM challenges WHERE difficulty = $1 ORDER BY RANDOM() LIMIT 1`
	if err := r.db.GetContext(ctx, &challenge, query, difficulty); err != nil {
		return nil, fmt.Errorf("failed to get random challenge: %w", err)
	}
	return &challenge, nil
}

func (r *challengeRepository) GetRandom(ctx context.Context) (*models.Challenge, error) {
	var challenge models.Challenge
	query := `SELECT id, title, difficulty, test_cases, reference_solution, reference_language FROM challenges ORDER BY RANDOM() LIMIT 1`
	if err := r.db.GetContext(ctx, &challenge, query); err != nil {
		return nil, fmt.Errorf("failed to get random challenge: %w", err)
	}
	return &challenge, nil
}
