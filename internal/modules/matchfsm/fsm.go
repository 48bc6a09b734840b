// Package matchfsm implements C5 Match Finite State Machine: the
// lobby -> countdown -> active -> completed lifecycle of a single duel
// match, with single-shot countdown start and single-shot completion
// guaranteed via golang.org/x/sync/singleflight rather than ad-hoc locks.
package matchfsm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/centrifugo"
	"github.com/codeduel/match-core/internal/config"
	"github.com/codeduel/match-core/internal/metrics"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/modules/powerup"
	"github.com/codeduel/match-core/internal/modules/roomfabric"
	"github.com/codeduel/match-core/internal/modules/session"
	"github.com/codeduel/match-core/internal/storage/postgres"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

// JudgingResult is the outcome of a completed match, independent of how
// it was produced (real judging pipeline or a watchdog fallback).
type JudgingResult struct {
	WinnerID      uuid.NullUUID
	PlayerScores  map[uuid.UUID]int
	PlayerDeltas  map[uuid.UUID]int
	Feedback      map[uuid.UUID]string
	IsFallback    bool
}

// Judger is the Judging Pipeline boundary the FSM depends on; the FSM
// never reaches into judging internals directly (per the no-cyclic-
// references design rule).
type Judger interface {
	Judge(ctx context.Context, matchID uuid.UUID) (*JudgingResult, error)
}

// FSM is the C5 Match Finite State Machine contract.
type FSM interface {
	// ReadyUp marks a player ready; once both players are ready it starts
	// the single countdown for this match.
	ReadyUp(ctx context.Context, matchID, playerID uuid.UUID) error

	// Submit marks a player's submission; once both players have
	// submitted it triggers completion exactly once.
	Submit(ctx context.Context, matchID, playerID uuid.UUID) error

	// AbortMatch force-completes a match with no winner, e.g. following
	// an unrecovered disconnect.
	AbortMatch(ctx context.Context, matchID uuid.UUID, reason string)
}

type fsm struct {
	state      matchstate.Store
	rooms      roomfabric.Fabric
	matches    repository.MatchRepository
	db         *postgres.DB
	judger     Judger
	powerup    powerup.Engine
	sessions   session.Directory
	centrifugo *centrifugo.Client
	cfg        *config.Config
	logger     *logrus.Logger
	metrics    *metrics.Metrics

	sf singleflight.Group
}

// New constructs a Match Finite State Machine.
func New(state matchstate.Store, rooms roomfabric.Fabric, matches repository.MatchRepository, db *postgres.DB, judger Judger, powerUp powerup.Engine, sessions session.Directory, centrifugoClient *centrifugo.Client, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) FSM {
	return &fsm{
		state:      state,
		rooms:      rooms,
		matches:    matches,
		db:         db,
		judger:     judger,
		powerup:    powerUp,
		sessions:   sessions,
		centrifugo: centrifugoClient,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// ReadyUp marks a player ready; the first caller to observe both ready
// bits set starts the countdown. Every later call — including racing
// concurrent callers — is coalesced onto the same singleflight key, so
// exactly one countdown goroutine is ever spawned per match.
func (f *fsm) ReadyUp(ctx context.Context, matchID, playerID uuid.UUID) error {
	if err := f.state.SetReady(ctx, matchID, playerID, true); err != nil {
		return err
	}

	current, err := f.state.GetState(ctx, matchID)
	if err != nil {
		return err
	}

	allReady := len(current.Players) > 0
	for _, p := range current.Players {
		if !p.Ready {
			allReady = false
			break
		}
	}
	if !allReady || current.Status != "lobby" {
		return nil
	}

	_, _, _ = f.sf.Do("countdown:"+matchID.String(), func() (interface{}, error) {
		return nil, f.startCountdown(ctx, matchID)
	})

	return nil
}

func (f *fsm) startCountdown(ctx context.Context, matchID uuid.UUID) error {
	endsAt := time.Now().Add(f.cfg.CountdownDuration)

	if err := f.state.SetStatus(ctx, matchID, "countdown"); err != nil {
		return err
	}
	if err := f.state.SetCountdownEndsAt(ctx, matchID, endsAt); err != nil {
		return err
	}

	f.logger.WithFields(logrus.Fields{
		"match_id": matchID,
		"ends_at":  endsAt,
	}).Info("match countdown started")

	_ = f.rooms.Broadcast(ctx, roomfabric.MatchRoom(matchID), "match_starting", map[string]interface{}{
		"countdown": int(f.cfg.CountdownDuration.Seconds()),
	})

	go func() {
		time.Sleep(time.Until(endsAt))
		bg := context.Background()
		if err := f.transitionToActive(bg, matchID); err != nil {
			f.logger.WithError(err).WithField("match_id", matchID).Error("failed to transition match to active")
		}
	}()

	return nil
}

// transitionToActive performs the atomic countdown-to-active write
// described in the FSM's failure semantics: durable status and cache
// startedAt are written in a fixed order, and any error aborts before
// either is half-set relative to the other.
func (f *fsm) transitionToActive(ctx context.Context, matchID uuid.UUID) error {
	_, err, _ := f.sf.Do("active:"+matchID.String(), func() (interface{}, error) {
		t0 := time.Now()

		if err := f.matches.SetStartTime(ctx, matchID); err != nil {
			return nil, err
		}
		if err := f.matches.UpdateStatus(ctx, matchID, models.MatchStatusActive); err != nil {
			return nil, err
		}
		if err := f.state.SetStartedAt(ctx, matchID, t0); err != nil {
			return nil, err
		}
		if err := f.state.SetStatus(ctx, matchID, "active"); err != nil {
			return nil, err
		}

		current, err := f.state.GetState(ctx, matchID)
		if err != nil {
			return nil, err
		}
		timeLimit := time.Duration(current.TimeLimitSeconds) * time.Second

		_ = f.rooms.Broadcast(ctx, roomfabric.MatchRoom(matchID), "match_started", map[string]interface{}{
			"startTime": t0,
			"timeLimit": int(timeLimit.Seconds()),
			"remaining": int(timeLimit.Seconds()),
		})

		go f.runTimerSync(context.Background(), matchID, t0, timeLimit)
		go f.scheduleAutoCompletion(context.Background(), matchID, t0, timeLimit)

		return nil, nil
	})
	return err
}

// runTimerSync periodically corrects client-side drift until the match's
// time limit is exhausted or the match has already completed. Delivery is
// per-player rather than a single room broadcast, since a player with an
// active time_freeze sees a different effective remaining time than their
// opponent: per §4.6, effectiveRemaining = baseRemaining + (expiresAt - now)
// for as long as the freeze is still active.
func (f *fsm) runTimerSync(ctx context.Context, matchID uuid.UUID, startedAt time.Time, timeLimit time.Duration) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		baseRemaining := timeLimit - time.Since(startedAt)
		if baseRemaining <= 0 {
			return
		}

		state, err := f.state.GetState(ctx, matchID)
		if err != nil || state.Status != "active" {
			return
		}

		for idStr := range state.Players {
			playerID, err := uuid.Parse(idStr)
			if err != nil {
				continue
			}

			remaining := baseRemaining
			if expiresAt, frozen, err := f.powerup.ActiveFreeze(ctx, matchID, playerID); err == nil && frozen {
				remaining = baseRemaining + time.Until(expiresAt)
			}

			connID, ok, err := f.sessions.Lookup(ctx, playerID)
			if err != nil || !ok {
				continue
			}
			if err := f.centrifugo.Publish(ctx, "conn:"+connID, "timer_sync", map[string]interface{}{
				"remaining": int(remaining.Seconds()),
			}); err != nil {
				f.logger.WithError(err).WithField("match_id", matchID).Warn("failed to deliver timer_sync")
			}
		}
	}
}

// scheduleAutoCompletion forces completion once the time limit elapses,
// even if neither player has explicitly submitted.
func (f *fsm) scheduleAutoCompletion(ctx context.Context, matchID uuid.UUID, startedAt time.Time, timeLimit time.Duration) {
	remaining := timeLimit - time.Since(startedAt)
	if remaining > 0 {
		time.Sleep(remaining)
	}

	state, err := f.state.GetState(ctx, matchID)
	if err != nil || state.Status != "active" {
		return
	}

	f.completeMatch(ctx, matchID, "time_expired")
}

// Submit marks a player's submission; MarkSubmitted reports whether this
// call was the one that completed the both-submitted predicate, so
// completion is triggered by exactly one of the two submitting goroutines.
func (f *fsm) Submit(ctx context.Context, matchID, playerID uuid.UUID) error {
	state, err := f.state.GetState(ctx, matchID)
	if err != nil {
		return err
	}
	if state.Status != "active" {
		return apperr.New(apperr.CodeMatchNotActive, "match is not active")
	}
	if ps, ok := state.Players[playerID.String()]; ok && ps.Submitted {
		return apperr.New(apperr.CodeAlreadySubmitted, "player has already submitted")
	}

	bothSubmitted, err := f.state.MarkSubmitted(ctx, matchID, playerID)
	if err != nil {
		return err
	}

	if bothSubmitted {
		go f.completeMatch(context.Background(), matchID, "both_submitted")
	}

	return nil
}

// completeMatch runs the Judging Pipeline under a global watchdog and
// falls back to a null-winner, empty-feedback completion rather than
// ever leaving the match stuck in active. It is only ever invoked
// through the "complete:" singleflight key, so concurrent triggers
// (auto-completion timer racing a submission) coalesce into one run.
func (f *fsm) completeMatch(ctx context.Context, matchID uuid.UUID, reason string) {
	_, _, _ = f.sf.Do("complete:"+matchID.String(), func() (interface{}, error) {
		judgeCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		result, err := f.judger.Judge(judgeCtx, matchID)
		if err != nil {
			f.logger.WithError(err).WithField("match_id", matchID).Error("judging failed, using fallback completion")
			result = &JudgingResult{IsFallback: true}
			f.metrics.RecordJudgingError(reason)
		}

		endReason := reason
		if result.IsFallback {
			endReason = "judging_failed"
		}

		// The Judging Pipeline already committed rating updates inside its
		// own transaction; completion here only needs to flip the match
		// row, so it gets its own short transaction.
		txErr := f.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
			return f.matches.Complete(ctx, tx, matchID, result.WinnerID, endReason)
		})
		if txErr != nil {
			f.logger.WithError(txErr).WithField("match_id", matchID).Error("failed to persist match completion")
		}
		_ = f.state.SetStatus(ctx, matchID, "completed")

		payload := map[string]interface{}{
			"matchId": matchID,
			"winner":  result.WinnerID,
			"scores":  result.PlayerScores,
			"feedback": result.Feedback,
		}
		_ = f.rooms.Broadcast(ctx, roomfabric.MatchRoom(matchID), "match_result", payload)
		if result.IsFallback {
			_ = f.rooms.Broadcast(ctx, roomfabric.MatchRoom(matchID), "analysis_error", payload)
		}

		_ = f.state.DeleteState(ctx, matchID)

		f.logger.WithFields(logrus.Fields{
			"match_id": matchID,
			"reason":   endReason,
			"fallback": result.IsFallback,
		}).Info("match completed")

		return nil, nil
	})
}

// AbortMatch force-completes a match with no winner, used when a
// disconnect's grace window expires with no rebind during an active match.
func (f *fsm) AbortMatch(ctx context.Context, matchID uuid.UUID, reason string) {
	_, _, _ = f.sf.Do("complete:"+matchID.String(), func() (interface{}, error) {
		txErr := f.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
			return f.matches.Complete(ctx, tx, matchID, uuid.NullUUID{}, reason)
		})
		if txErr != nil {
			f.logger.WithError(txErr).WithField("match_id", matchID).Error("failed to persist match abort")
		}
		_ = f.state.SetStatus(ctx, matchID, "aborted")
		_ = f.rooms.Broadcast(ctx, roomfabric.MatchRoom(matchID), "match_result", map[string]interface{}{
			"matchId": matchID,
			"winner":  nil,
			"reason":  reason,
		})
		_ = f.state.DeleteState(ctx, matchID)
		return nil, nil
	})
}
