// Package replay implements C7 Replay Log: a per-process in-memory
// ring buffer of pending match events, flushed to the durable store in
// batches on size, a periodic timer, or process shutdown.
package replay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/config"
	"github.com/codeduel/match-core/internal/metrics"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

// Log is the C7 Replay Log contract.
type Log interface {
	// Append computes timestamp = now - match startedAt and enqueues the
	// event for the next flush.
	Append(matchID uuid.UUID, playerID *uuid.UUID, startedAt time.Time, eventType string, payload interface{}) error

	// Run drives the periodic flush timer until ctx is cancelled.
	Run(ctx context.Context)

	// Shutdown flushes any remaining buffered events once, synchronously.
	Shutdown(ctx context.Context) error
}

type replayLog struct {
	repo    repository.ReplayEventRepository
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	buffer  []*models.ReplayEvent
	seqs    map[uuid.UUID]int64
}

// NewLog constructs a Postgres-backed Replay Log.
func NewLog(repo repository.ReplayEventRepository, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) Log {
	return &replayLog{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		seqs:    make(map[uuid.UUID]int64),
	}
}

// Append enqueues an event; timestamps are milliseconds relative to the
// match's startedAt, computed at emit time so ordering survives clock
// skew between the emitting process and the reader.
func (l *replayLog) Append(matchID uuid.UUID, playerID *uuid.UUID, startedAt time.Time, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to marshal replay event payload", err)
	}

	var playerUUID uuid.NullUUID
	if playerID != nil {
		playerUUID = uuid.NullUUID{UUID: *playerID, Valid: true}
	}

	now := time.Now()
	timestampMs := now.Sub(startedAt).Milliseconds()
	if timestampMs < 0 {
		timestampMs = 0
	}

	l.mu.Lock()
	l.seqs[matchID]++
	event := &models.ReplayEvent{
		ID:          uuid.New(),
		MatchID:     matchID,
		PlayerID:    playerUUID,
		Seq:         l.seqs[matchID],
		EventType:   eventType,
		Payload:     data,
		TimestampMs: timestampMs,
		OccurredAt:  now,
	}
	l.buffer = append(l.buffer, event)
	shouldFlush := len(l.buffer) >= l.cfg.ReplayFlushSize
	l.mu.Unlock()

	l.metrics.RecordReplayEventAppended()

	if shouldFlush {
		go func() {
			if err := l.Flush(context.Background()); err != nil {
				l.logger.WithError(err).Error("replay flush on size threshold failed")
			}
		}()
	}

	return nil
}

// Flush appends every buffered event to the durable store in a single
// batch insert. On failure, the events are re-queued at the head of the
// buffer so ordering is preserved across retries.
func (l *replayLog) Flush(ctx context.Context) error {
	l.mu.Lock()
	if len(l.buffer) == 0 {
		l.mu.Unlock()
		return nil
	}
	batch := l.buffer
	l.buffer = nil
	l.mu.Unlock()

	start := time.Now()
	err := l.repo.AppendBatch(ctx, batch)
	l.metrics.RecordReplayFlush(time.Since(start))

	if err != nil {
		l.logger.WithError(err).WithField("batch_size", len(batch)).Error("replay flush failed, re-queuing")
		l.mu.Lock()
		l.buffer = append(batch, l.buffer...)
		l.mu.Unlock()
		return err
	}

	return nil
}

// Run drives the periodic flush timer until ctx is cancelled.
func (l *replayLog) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.ReplayFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Flush(ctx); err != nil {
				l.logger.WithError(err).Error("periodic replay flush failed")
			}
		}
	}
}

// Shutdown flushes any remaining buffered events once, synchronously,
// so no event is lost on process exit.
func (l *replayLog) Shutdown(ctx context.Context) error {
	return l.Flush(ctx)
}
