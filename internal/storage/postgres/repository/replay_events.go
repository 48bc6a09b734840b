package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

// ReplayEventRepository defines the interface for replay log data access.
type ReplayEventRepository interface {
	// AppendBatch inserts a batch of replay events in a single round
	// trip, mirroring the Replay Log's buffered-flush design.
	AppendBatch(ctx context.Context, events []*models.ReplayEvent) error

	// GetByMatch retrieves the full replay log for a match, ordered by
	// sequence number.
	GetByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.ReplayEvent, error)
}

// replayEventRepository implements ReplayEventRepository
type replayEventRepository struct {
	db *sqlx.DB
}

// NewReplayEventRepository creates a new replay event repository
func NewReplayEventRepository(db *sqlx.DB) ReplayEventRepository {
	return &replayEventRepository{db: db}
}

// AppendBatch inserts a batch of replay events in a single statement
func (r *replayEventRepository) AppendBatch(ctx context.Context, events []*models.ReplayEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO match_events (id, match_id, player_id, seq, event_type, payload, timestamp_ms, occurred_at)
		VALUES (:id, :match_id, :player_id, :seq, :event_type, :payload, :timestamp_ms, :occurred_at)`

	_, err := r.db.NamedExecContext(ctx, query, events)
	return err
}

// GetByMatch retrieves the full replay log for a match, ordered by seq
func (r *replayEventRepository) GetByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.ReplayEvent, error) {
	events := []*models.ReplayEvent{}
	query := `
		SELECT id, match_id, player_id, seq, event_type, payload, timestamp_ms, occurred_at
		FROM match_events
		WHERE match_id = $1
		ORDER BY seq ASC`

	err := r.db.SelectContext(ctx, &events, query, matchID)
	return events, err
}
