// Package matchstate implements C3 Match State Store: a per-match
// key-value surface with field-level atomic mutators backed by Redis,
// so every process instance observes the same live match state.
package matchstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/codeduel/match-core/internal/apperr"
)

// Cursor is a caret position inside a player's editor buffer.
type Cursor struct {
	Line int `json:"l"`
	Col  int `json:"c"`
}

// PlayerState is one player's live, mutable slice of a match.
type PlayerState struct {
	PlayerID  uuid.UUID `json:"player_id"`
	Language  string    `json:"language"`
	Ready     bool      `json:"ready"`
	Code      string    `json:"code"`
	Cursor    Cursor    `json:"cursor"`
	Submitted bool      `json:"submitted"`
}

// MatchState is the full live snapshot of a single match.
type MatchState struct {
	MatchID          uuid.UUID              `json:"match_id"`
	ChallengeID      uuid.UUID              `json:"challenge_id"`
	Status           string                 `json:"status"`
	TimeLimitSeconds int                    `json:"time_limit_seconds"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	CountdownEndsAt  *time.Time             `json:"countdown_ends_at,omitempty"`
	Players          map[string]*PlayerState `json:"players"`
}

// Store is the C3 Match State Store contract.
type Store interface {
	CreateState(ctx context.Context, matchID, challengeID uuid.UUID, playerIDs []uuid.UUID, languages map[uuid.UUID]string, timeLimitSeconds int) (*MatchState, error)
	GetState(ctx context.Context, matchID uuid.UUID) (*MatchState, error)
	SetReady(ctx context.Context, matchID, playerID uuid.UUID, ready bool) error
	SetCode(ctx context.Context, matchID, playerID uuid.UUID, code string, cursor Cursor) error
	MarkSubmitted(ctx context.Context, matchID, playerID uuid.UUID) (bothSubmitted bool, err error)
	SetStatus(ctx context.Context, matchID uuid.UUID, status string) error
	SetCountdownEndsAt(ctx context.Context, matchID uuid.UUID, at time.Time) error
	SetStartedAt(ctx context.Context, matchID uuid.UUID, at time.Time) error
	SetField(ctx context.Context, matchID uuid.UUID, field string, value interface{}) error
	DeleteState(ctx context.Context, matchID uuid.UUID) error

	// CurrentMatchFor returns the match a player currently has live
	// state in, if any, via the reverse index CreateState/DeleteState
	// maintain alongside the per-match hash.
	CurrentMatchFor(ctx context.Context, playerID uuid.UUID) (uuid.UUID, bool, error)
}

type redisStore struct {
	client *redis.Client
}

// NewStore constructs a Redis-backed Match State Store.
func NewStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func stateKey(matchID uuid.UUID) string {
	return fmt.Sprintf("match:%s:state", matchID.String())
}

const (
	fieldStatus           = "status"
	fieldChallengeID      = "challenge_id"
	fieldTimeLimitSeconds = "time_limit_seconds"
	fieldStartedAt        = "started_at"
	fieldCountdownEndsAt  = "countdown_ends_at"
	fieldPlayerIDs        = "player_ids"
)

func playerField(playerID uuid.UUID) string {
	return fmt.Sprintf("player:%s", playerID.String())
}

// playerMatchKey indexes a player's currently live match, so a
// disconnect handler can find and abort it without scanning every
// match in progress.
func playerMatchKey(playerID uuid.UUID) string {
	return fmt.Sprintf("player:%s:match", playerID.String())
}

// CreateState seeds a new match's live state with both players in their
// initial, unready, unsubmitted slots.
func (s *redisStore) CreateState(ctx context.Context, matchID, challengeID uuid.UUID, playerIDs []uuid.UUID, languages map[uuid.UUID]string, timeLimitSeconds int) (*MatchState, error) {
	key := stateKey(matchID)

	ids := make([]string, 0, len(playerIDs))
	players := make(map[string]*PlayerState, len(playerIDs))
	for _, pid := range playerIDs {
		ids = append(ids, pid.String())
		players[pid.String()] = &PlayerState{
			PlayerID: pid,
			Language: languages[pid],
		}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to marshal player ids", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldStatus, "lobby")
	pipe.HSet(ctx, key, fieldChallengeID, challengeID.String())
	pipe.HSet(ctx, key, fieldTimeLimitSeconds, timeLimitSeconds)
	pipe.HSet(ctx, key, fieldPlayerIDs, idsJSON)
	for _, pid := range playerIDs {
		data, err := json.Marshal(players[pid.String()])
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to marshal player state", err)
		}
		pipe.HSet(ctx, key, playerField(pid), data)
		pipe.Set(ctx, playerMatchKey(pid), matchID.String(), 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create match state", err)
	}

	return &MatchState{
		MatchID:          matchID,
		ChallengeID:      challengeID,
		Status:           "lobby",
		TimeLimitSeconds: timeLimitSeconds,
		Players:          players,
	}, nil
}

// GetState reconstructs the full live snapshot from the backing hash.
func (s *redisStore) GetState(ctx context.Context, matchID uuid.UUID) (*MatchState, error) {
	raw, err := s.client.HGetAll(ctx, stateKey(matchID)).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to read match state", err)
	}
	if len(raw) == 0 {
		return nil, apperr.New(apperr.CodeMatchNotFound, "match state not found")
	}

	state := &MatchState{
		MatchID: matchID,
		Status:  raw[fieldStatus],
		Players: make(map[string]*PlayerState),
	}

	if cid := raw[fieldChallengeID]; cid != "" {
		if parsed, err := uuid.Parse(cid); err == nil {
			state.ChallengeID = parsed
		}
	}
	if tl := raw[fieldTimeLimitSeconds]; tl != "" {
		fmt.Sscanf(tl, "%d", &state.TimeLimitSeconds)
	}
	if sa := raw[fieldStartedAt]; sa != "" {
		if t, err := time.Parse(time.RFC3339Nano, sa); err == nil {
			state.StartedAt = &t
		}
	}
	if ce := raw[fieldCountdownEndsAt]; ce != "" {
		if t, err := time.Parse(time.RFC3339Nano, ce); err == nil {
			state.CountdownEndsAt = &t
		}
	}

	var ids []string
	if pidsJSON := raw[fieldPlayerIDs]; pidsJSON != "" {
		_ = json.Unmarshal([]byte(pidsJSON), &ids)
	}
	for _, id := range ids {
		data, ok := raw[playerField(uuid.MustParse(id))]
		if !ok {
			continue
		}
		var ps PlayerState
		if err := json.Unmarshal([]byte(data), &ps); err == nil {
			state.Players[id] = &ps
		}
	}

	return state, nil
}

func (s *redisStore) getPlayerState(ctx context.Context, matchID, playerID uuid.UUID) (*PlayerState, error) {
	data, err := s.client.HGet(ctx, stateKey(matchID), playerField(playerID)).Result()
	if err == redis.Nil {
		return nil, apperr.New(apperr.CodeNotAParticipant, "player is not part of this match")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to read player state", err)
	}

	var ps PlayerState
	if err := json.Unmarshal([]byte(data), &ps); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to unmarshal player state", err)
	}
	return &ps, nil
}

func (s *redisStore) putPlayerState(ctx context.Context, matchID uuid.UUID, ps *PlayerState) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to marshal player state", err)
	}
	if err := s.client.HSet(ctx, stateKey(matchID), playerField(ps.PlayerID), data).Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to write player state", err)
	}
	return nil
}

// SetReady atomically flips a player's ready bit.
func (s *redisStore) SetReady(ctx context.Context, matchID, playerID uuid.UUID, ready bool) error {
	ps, err := s.getPlayerState(ctx, matchID, playerID)
	if err != nil {
		return err
	}
	ps.Ready = ready
	return s.putPlayerState(ctx, matchID, ps)
}

// SetCode atomically writes a player's latest code snapshot and cursor.
func (s *redisStore) SetCode(ctx context.Context, matchID, playerID uuid.UUID, code string, cursor Cursor) error {
	ps, err := s.getPlayerState(ctx, matchID, playerID)
	if err != nil {
		return err
	}
	ps.Code = code
	ps.Cursor = cursor
	return s.putPlayerState(ctx, matchID, ps)
}

// MarkSubmitted flags a player as submitted and, within the same
// transaction, reports whether both players have now submitted —
// the FSM uses this return value to decide whether to trigger judging
// exactly once.
func (s *redisStore) MarkSubmitted(ctx context.Context, matchID, playerID uuid.UUID) (bool, error) {
	key := stateKey(matchID)

	var bothSubmitted bool
	txf := func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, key, playerField(playerID)).Result()
		if err != nil {
			return err
		}
		var ps PlayerState
		if err := json.Unmarshal([]byte(data), &ps); err != nil {
			return err
		}
		ps.Submitted = true
		updated, err := json.Marshal(ps)
		if err != nil {
			return err
		}

		idsJSON, err := tx.HGet(ctx, key, fieldPlayerIDs).Result()
		if err != nil {
			return err
		}
		var ids []string
		if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
			return err
		}

		if err := tx.HSet(ctx, key, playerField(playerID), updated).Err(); err != nil {
			return err
		}

		bothSubmitted = true
		for _, id := range ids {
			if id == playerID.String() {
				continue
			}
			raw, err := tx.HGet(ctx, key, playerField(uuid.MustParse(id))).Result()
			if err != nil {
				return err
			}
			var peer PlayerState
			if err := json.Unmarshal([]byte(raw), &peer); err != nil {
				return err
			}
			if !peer.Submitted {
				bothSubmitted = false
			}
		}
		return nil
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		return false, apperr.Wrap(apperr.CodeInternal, "failed to mark submitted", err)
	}

	return bothSubmitted, nil
}

// SetStatus writes the match's current lifecycle status.
func (s *redisStore) SetStatus(ctx context.Context, matchID uuid.UUID, status string) error {
	return s.client.HSet(ctx, stateKey(matchID), fieldStatus, status).Err()
}

// SetCountdownEndsAt records the countdown's publicly readable end timestamp.
func (s *redisStore) SetCountdownEndsAt(ctx context.Context, matchID uuid.UUID, at time.Time) error {
	return s.client.HSet(ctx, stateKey(matchID), fieldCountdownEndsAt, at.Format(time.RFC3339Nano)).Err()
}

// SetStartedAt records the single source-of-truth start time.
func (s *redisStore) SetStartedAt(ctx context.Context, matchID uuid.UUID, at time.Time) error {
	return s.client.HSet(ctx, stateKey(matchID), fieldStartedAt, at.Format(time.RFC3339Nano)).Err()
}

// SetField writes an arbitrary scalar field, for extension points that
// don't warrant a dedicated mutator.
func (s *redisStore) SetField(ctx context.Context, matchID uuid.UUID, field string, value interface{}) error {
	return s.client.HSet(ctx, stateKey(matchID), field, value).Err()
}

// DeleteState removes a match's live state entirely, once it is
// archived to the durable store and no longer needed in cache, and
// clears the reverse player->match index for every participant so a
// later disconnect can't resolve to a match that no longer exists.
func (s *redisStore) DeleteState(ctx context.Context, matchID uuid.UUID) error {
	state, err := s.GetState(ctx, matchID)
	if err != nil && apperr.CodeOf(err) != apperr.CodeMatchNotFound {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, stateKey(matchID))
	if state != nil {
		for _, ps := range state.Players {
			pipe.Del(ctx, playerMatchKey(ps.PlayerID))
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to delete match state", err)
	}
	return nil
}

// CurrentMatchFor resolves the match a player currently has live state
// in via the reverse index, so a disconnect handler can find and abort
// it without scanning every in-progress match.
func (s *redisStore) CurrentMatchFor(ctx context.Context, playerID uuid.UUID) (uuid.UUID, bool, error) {
	raw, err := s.client.Get(ctx, playerMatchKey(playerID)).Result()
	if err == redis.Nil {
		return uuid.UUID{}, false, nil
	}
	if err != nil {
		return uuid.UUID{}, false, apperr.Wrap(apperr.CodeInternal, "failed to read player match index", err)
	}

	matchID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, false, apperr.Wrap(apperr.CodeInternal, "invalid match id in player match index", err)
	}
	return matchID, true, nil
}
