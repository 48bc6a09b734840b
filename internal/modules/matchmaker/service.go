package matchmaker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/config"
	"github.com/codeduel/match-core/internal/metrics"
)

// QueueStatus describes a player's current position in the matchmaking queue
type QueueStatus struct {
	InQueue             bool      `json:"in_queue"`
	JoinedAt            time.Time `json:"joined_at,omitempty"`
	EstimatedWaitSecs   int       `json:"estimated_wait_secs,omitempty"`
	CurrentToleranceGap int       `json:"current_tolerance_gap,omitempty"`
}

// PairedMatch is the result of pairing two players together from the queue
type PairedMatch struct {
	PlayerOneID uuid.UUID
	PlayerTwoID uuid.UUID
	Difficulty  string
}

// MatchCreator is invoked by the matchmaking worker whenever it pairs
// two queued players; the concrete implementation (C5 Match FSM) owns
// match creation and lobby transition.
type MatchCreator interface {
	CreateMatch(ctx context.Context, playerOneID, playerTwoID uuid.UUID) error
}

// MatchmakerService manages the matchmaking queue and pairing worker
type MatchmakerService interface {
	// JoinQueue enqueues a player for matchmaking
	JoinQueue(ctx context.Context, playerID uuid.UUID, displayName string, rating int) error

	// LeaveQueue removes a player from the matchmaking queue
	LeaveQueue(ctx context.Context, playerID uuid.UUID) error

	// GetStatus reports a player's current queue status
	GetStatus(ctx context.Context, playerID uuid.UUID) (*QueueStatus, error)

	// StartWorker runs the pairing loop until ctx is cancelled
	StartWorker(ctx context.Context)
}

type matchmakerService struct {
	queue    QueueOperations
	creator  MatchCreator
	cfg      *config.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	joinedAt sync.Map // uuid.UUID -> time.Time, tracked locally for wait-time estimates
}

// NewMatchmakerService constructs a matchmaking service backed by Redis
func NewMatchmakerService(queue QueueOperations, creator MatchCreator, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) MatchmakerService {
	return &matchmakerService{
		queue:   queue,
		creator: creator,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// JoinQueue enqueues a player for matchmaking
func (s *matchmakerService) JoinQueue(ctx context.Context, playerID uuid.UUID, displayName string, rating int) error {
	inQueue, _, err := s.queue.IsPlayerInQueue(ctx, playerID)
	if err != nil {
		return err
	}
	if inQueue {
		return apperr.New(apperr.CodeAlreadyInQueue, "player already in matchmaking queue")
	}

	entry := &QueueEntry{
		PlayerID:    playerID,
		DisplayName: displayName,
		Rating:      rating,
		JoinedAt:    time.Now(),
	}

	if err := s.queue.AddToQueue(ctx, entry); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to join queue", err)
	}

	s.joinedAt.Store(playerID, entry.JoinedAt)

	s.logger.WithFields(logrus.Fields{
		"player_id": playerID,
		"rating":    rating,
		"band":      RatingBand(rating),
	}).Info("player joined matchmaking queue")

	return nil
}

// LeaveQueue removes a player from the matchmaking queue
func (s *matchmakerService) LeaveQueue(ctx context.Context, playerID uuid.UUID) error {
	inQueue, _, err := s.queue.IsPlayerInQueue(ctx, playerID)
	if err != nil {
		return err
	}
	if !inQueue {
		return apperr.New(apperr.CodeNotInQueue, "player is not in matchmaking queue")
	}

	if err := s.queue.RemoveFromQueue(ctx, playerID); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to leave queue", err)
	}

	s.joinedAt.Delete(playerID)
	s.logger.WithField("player_id", playerID).Info("player left matchmaking queue")

	return nil
}

// GetStatus reports a player's current queue status
func (s *matchmakerService) GetStatus(ctx context.Context, playerID uuid.UUID) (*QueueStatus, error) {
	inQueue, band, err := s.queue.IsPlayerInQueue(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !inQueue {
		return &QueueStatus{InQueue: false}, nil
	}

	joinedAt := time.Now()
	if v, ok := s.joinedAt.Load(playerID); ok {
		joinedAt = v.(time.Time)
	}

	waited := time.Since(joinedAt)
	tolerance := s.currentTolerance(waited)

	return &QueueStatus{
		InQueue:             true,
		JoinedAt:            joinedAt,
		EstimatedWaitSecs:   s.estimateWait(band, waited),
		CurrentToleranceGap: tolerance,
	}, nil
}

// currentTolerance computes the rating-gap window a waiting player will accept,
// widening linearly from the base tolerance up to the configured ceiling.
func (s *matchmakerService) currentTolerance(waited time.Duration) int {
	widenEvery := time.Duration(s.cfg.MatchmakingWidenEverySeconds) * time.Second
	if widenEvery <= 0 {
		return s.cfg.MatchmakingBaseToleranceRating
	}

	steps := int(waited / widenEvery)
	tolerance := s.cfg.MatchmakingBaseToleranceRating + steps*s.cfg.MatchmakingBaseToleranceRating
	if tolerance > s.cfg.MatchmakingMaxToleranceRating {
		tolerance = s.cfg.MatchmakingMaxToleranceRating
	}
	return tolerance
}

// estimateWait reports the seconds left until the configured queue timeout
// for a player who has already waited; band is not consulted. It is a
// heuristic, not a scheduling guarantee.
func (s *matchmakerService) estimateWait(band int, waited time.Duration) int {
	remaining := s.cfg.MatchmakingQueueTimeout - waited
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// StartWorker runs the pairing loop until ctx is cancelled
func (s *matchmakerService) StartWorker(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	s.logger.Info("matchmaking worker started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("matchmaking worker stopped")
			return
		case <-ticker.C:
			if err := s.runPairingPass(ctx); err != nil {
				s.logger.WithError(err).Error("matchmaking pass failed")
			}
		}
	}
}

// runPairingPass scans every active rating band and pairs each queued head
// player with the first player whose rating gap falls within the head's
// current (possibly widened) tolerance; the opponent's own tolerance is
// not checked.
func (s *matchmakerService) runPairingPass(ctx context.Context) error {
	bands, err := s.queue.ActiveBands(ctx)
	if err != nil {
		return err
	}

	for _, band := range bands {
		if err := s.pairWithinBand(ctx, band, bands); err != nil {
			s.logger.WithError(err).WithField("band", band).Error("pairing pass failed for band")
		}
	}

	return nil
}

func (s *matchmakerService) pairWithinBand(ctx context.Context, band int, allBands []int) error {
	candidates, err := s.queue.PeekQueue(ctx, band, 32)
	if err != nil {
		return err
	}

	for len(candidates) > 0 {
		head := candidates[0]
		candidates = candidates[1:]

		waited := time.Since(head.JoinedAt)
		tolerance := s.currentTolerance(waited)

		opponent, opponentBand, found := s.findOpponent(ctx, head, tolerance, allBands)
		if !found {
			continue
		}

		popped, err := s.queue.PopSpecific(ctx, band, head.PlayerID)
		if err != nil || popped == nil {
			continue
		}

		oppPopped, err := s.queue.PopSpecific(ctx, opponentBand, opponent.PlayerID)
		if err != nil {
			// re-queue head since the opponent slot is gone
			_ = s.queue.AddToQueue(ctx, popped)
			continue
		}
		if oppPopped == nil {
			_ = s.queue.AddToQueue(ctx, popped)
			continue
		}

		s.joinedAt.Delete(head.PlayerID)
		s.joinedAt.Delete(opponent.PlayerID)

		if err := s.creator.CreateMatch(ctx, head.PlayerID, opponent.PlayerID); err != nil {
			s.logger.WithError(err).Error("failed to create match for paired players")
			continue
		}

		s.metrics.RecordMatchmakingWait(bandLabel(band), time.Since(head.JoinedAt))
		s.logger.WithFields(logrus.Fields{
			"player_one": head.PlayerID,
			"player_two": opponent.PlayerID,
			"gap":        abs(head.Rating - opponent.Rating),
		}).Info("paired players for match")
	}

	return nil
}

// findOpponent looks for the first queued player (in any active band) within
// the given tolerance of head's rating, other than head itself.
func (s *matchmakerService) findOpponent(ctx context.Context, head *QueueEntry, tolerance int, allBands []int) (*QueueEntry, int, bool) {
	for _, band := range allBands {
		peers, err := s.queue.PeekQueue(ctx, band, 32)
		if err != nil {
			continue
		}

		for _, peer := range peers {
			if peer.PlayerID == head.PlayerID {
				continue
			}
			if abs(peer.Rating-head.Rating) <= tolerance {
				return peer, band, true
			}
		}
	}
	return nil, 0, false
}

func bandLabel(band int) string {
	return strconv.Itoa(band)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
