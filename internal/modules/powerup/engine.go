// Package powerup implements C6 Power-up Engine: the three match
// power-up effects (time_freeze, code_peek, debug_shield), their
// shared per-player cooldown, and their Redis-backed inventory.
package powerup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/centrifugo"
	"github.com/codeduel/match-core/internal/constants"
	"github.com/codeduel/match-core/internal/metrics"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/modules/roomfabric"
	"github.com/codeduel/match-core/internal/modules/session"
)

const cooldownDuration = 60 * time.Second

// Inventory is a player's remaining power-up charges for a match.
type Inventory struct {
	TimeFreeze  int `json:"time_freeze"`
	CodePeek    int `json:"code_peek"`
	DebugShield int `json:"debug_shield"`
}

// ActiveEffect is the currently-active power-up effect for a player, if any.
type ActiveEffect struct {
	Type              string    `json:"type"`
	ActivatedAt       time.Time `json:"activated_at"`
	ExpiresAt         time.Time `json:"expires_at,omitempty"`
	RemainingCharges  int       `json:"remaining_charges,omitempty"`
}

// playerPowerUpState is the full Redis-backed record for one player.
type playerPowerUpState struct {
	Inventory     Inventory     `json:"inventory"`
	CooldownUntil time.Time     `json:"cooldown_until"`
	ActiveEffect  *ActiveEffect `json:"active_effect,omitempty"`
}

// ShieldConsumeResult is returned every time a test run checks whether a
// debug shield should absorb a failing case.
type ShieldConsumeResult struct {
	IsActive         bool `json:"isActive"`
	RemainingCharges int  `json:"remainingCharges"`
	WasConsumed      bool `json:"wasConsumed"`
}

// Engine is the C6 Power-up Engine contract.
type Engine interface {
	// AllocateForMatch seeds both players' inventories at lobby creation.
	AllocateForMatch(ctx context.Context, matchID uuid.UUID, playerIDs []uuid.UUID) error

	// Activate validates and applies a power-up activation.
	Activate(ctx context.Context, matchID, playerID uuid.UUID, powerUpType string) error

	// ConsumeShieldCharge is called by the Judging/sandbox path on every
	// test run to account for an active debug shield.
	ConsumeShieldCharge(ctx context.Context, matchID, playerID uuid.UUID) (*ShieldConsumeResult, error)

	// GetState returns a player's current inventory/cooldown/effect state.
	GetState(ctx context.Context, matchID, playerID uuid.UUID) (*playerPowerUpState, error)

	// ActiveFreeze reports whether a player currently has an unexpired
	// time_freeze effect and, if so, when it expires — the FSM's timer
	// sync uses this to apply the §4.6 effective-remaining formula.
	ActiveFreeze(ctx context.Context, matchID, playerID uuid.UUID) (time.Time, bool, error)
}

type engine struct {
	redis      *redis.Client
	state      matchstate.Store
	rooms      roomfabric.Fabric
	sessions   session.Directory
	centrifugo *centrifugo.Client
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// NewEngine constructs a Redis-backed Power-up Engine.
func NewEngine(redisClient *redis.Client, state matchstate.Store, rooms roomfabric.Fabric, sessions session.Directory, centrifugoClient *centrifugo.Client, logger *logrus.Logger, m *metrics.Metrics) Engine {
	return &engine{redis: redisClient, state: state, rooms: rooms, sessions: sessions, centrifugo: centrifugoClient, logger: logger, metrics: m}
}

func powerupKey(matchID, playerID uuid.UUID) string {
	return fmt.Sprintf("match:%s:powerups:%s", matchID, playerID)
}

// AllocateForMatch seeds both players' inventories to {1,1,1}, no active
// effect, no cooldown — the allocation invariant enforced at creation time.
func (e *engine) AllocateForMatch(ctx context.Context, matchID uuid.UUID, playerIDs []uuid.UUID) error {
	pipe := e.redis.TxPipeline()
	for _, playerID := range playerIDs {
		state := &playerPowerUpState{Inventory: Inventory{TimeFreeze: 1, CodePeek: 1, DebugShield: 1}}
		data, err := json.Marshal(state)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, "failed to marshal power-up state", err)
		}
		pipe.Set(ctx, powerupKey(matchID, playerID), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to allocate power-ups", err)
	}
	return nil
}

func (e *engine) getState(ctx context.Context, matchID, playerID uuid.UUID) (*playerPowerUpState, error) {
	data, err := e.redis.Get(ctx, powerupKey(matchID, playerID)).Result()
	if err == redis.Nil {
		return nil, apperr.New(apperr.CodeMatchNotFound, "no power-up state for this player")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to read power-up state", err)
	}
	var state playerPowerUpState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to unmarshal power-up state", err)
	}
	return &state, nil
}

func (e *engine) putState(ctx context.Context, matchID, playerID uuid.UUID, state *playerPowerUpState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to marshal power-up state", err)
	}
	return e.redis.Set(ctx, powerupKey(matchID, playerID), data, 0).Err()
}

// GetState returns a player's current inventory/cooldown/effect state.
func (e *engine) GetState(ctx context.Context, matchID, playerID uuid.UUID) (*playerPowerUpState, error) {
	return e.getState(ctx, matchID, playerID)
}

// Activate validates and applies a power-up activation per the §4.6
// protocol: existence, match-active, inventory, then cooldown.
func (e *engine) Activate(ctx context.Context, matchID, playerID uuid.UUID, powerUpType string) error {
	if !constants.IsPowerUpTypeValid(powerUpType) {
		return apperr.New(apperr.CodeInvalidRequest, "unknown power-up type")
	}

	matchState, err := e.state.GetState(ctx, matchID)
	if err != nil {
		return err
	}
	if _, ok := matchState.Players[playerID.String()]; !ok {
		return apperr.New(apperr.CodeNotAParticipant, "player is not part of this match")
	}
	if matchState.Status != "active" {
		return apperr.New(apperr.CodeMatchNotActive, "match is not active")
	}

	playerState, err := e.getState(ctx, matchID, playerID)
	if err != nil {
		return err
	}

	count := e.countFor(playerState.Inventory, powerUpType)
	if count <= 0 {
		e.metrics.RecordPowerUpRejection(powerUpType, "no_inventory")
		return apperr.New(apperr.CodePowerUpNotOwned, "player has no remaining charges of this power-up")
	}

	now := time.Now()
	if playerState.CooldownUntil.After(now) {
		e.metrics.RecordPowerUpRejection(powerUpType, "cooldown")
		return apperr.Wrap(apperr.CodePowerUpOnCooldown,
			fmt.Sprintf("power-up on cooldown for %dms", playerState.CooldownUntil.Sub(now).Milliseconds()), nil)
	}

	e.decrement(&playerState.Inventory, powerUpType)
	playerState.CooldownUntil = now.Add(cooldownDuration)

	var opponentCode string
	switch powerUpType {
	case constants.PowerUpTimeFreeze:
		playerState.ActiveEffect = &ActiveEffect{
			Type:        powerUpType,
			ActivatedAt: now,
			ExpiresAt:   now.Add(10 * time.Second),
		}
	case constants.PowerUpCodePeek:
		opponentCode = e.opponentCode(matchState, playerID)
	case constants.PowerUpDebugShield:
		playerState.ActiveEffect = &ActiveEffect{
			Type:             powerUpType,
			ActivatedAt:      now,
			RemainingCharges: 3,
		}
	}

	if err := e.putState(ctx, matchID, playerID, playerState); err != nil {
		return err
	}

	e.metrics.RecordPowerUpActivation(powerUpType)

	var freezeExpiresAt *time.Time
	if powerUpType == constants.PowerUpTimeFreeze {
		freezeExpiresAt = &playerState.ActiveEffect.ExpiresAt
	}
	e.broadcastActivation(ctx, matchID, playerID, powerUpType, opponentCode, freezeExpiresAt)

	if powerUpType == constants.PowerUpTimeFreeze {
		go e.expireTimeFreeze(context.Background(), matchID, playerID, playerState.ActiveEffect.ExpiresAt)
	}

	return nil
}

// ActiveFreeze reports a player's currently active, unexpired time_freeze
// effect, if any.
func (e *engine) ActiveFreeze(ctx context.Context, matchID, playerID uuid.UUID) (time.Time, bool, error) {
	state, err := e.getState(ctx, matchID, playerID)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeMatchNotFound {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if state.ActiveEffect == nil || state.ActiveEffect.Type != constants.PowerUpTimeFreeze {
		return time.Time{}, false, nil
	}
	if !state.ActiveEffect.ExpiresAt.After(time.Now()) {
		return time.Time{}, false, nil
	}
	return state.ActiveEffect.ExpiresAt, true, nil
}

func (e *engine) countFor(inv Inventory, powerUpType string) int {
	switch powerUpType {
	case constants.PowerUpTimeFreeze:
		return inv.TimeFreeze
	case constants.PowerUpCodePeek:
		return inv.CodePeek
	case constants.PowerUpDebugShield:
		return inv.DebugShield
	}
	return 0
}

func (e *engine) decrement(inv *Inventory, powerUpType string) {
	switch powerUpType {
	case constants.PowerUpTimeFreeze:
		inv.TimeFreeze--
	case constants.PowerUpCodePeek:
		inv.CodePeek--
	case constants.PowerUpDebugShield:
		inv.DebugShield--
	}
}

func (e *engine) opponentCode(matchState *matchstate.MatchState, playerID uuid.UUID) string {
	for id, ps := range matchState.Players {
		if id != playerID.String() {
			return ps.Code
		}
	}
	return ""
}

// broadcastActivation applies the §4.6 visibility rules: the activator
// gets full detail on their own connection, the opponent a type-only
// notice on the match room, spectators a minimal summary.
func (e *engine) broadcastActivation(ctx context.Context, matchID, playerID uuid.UUID, powerUpType, opponentCode string, freezeExpiresAt *time.Time) {
	activatorPayload := map[string]interface{}{
		"playerId": playerID,
		"type":     powerUpType,
	}
	if powerUpType == constants.PowerUpCodePeek {
		activatorPayload["opponentCode"] = opponentCode
	}
	if powerUpType == constants.PowerUpTimeFreeze && freezeExpiresAt != nil {
		activatorPayload["freezeExpiresAt"] = *freezeExpiresAt
	}

	if connID, ok, err := e.sessions.Lookup(ctx, playerID); err == nil && ok {
		if err := e.centrifugo.Publish(ctx, "conn:"+connID, "powerup_activated", activatorPayload); err != nil {
			e.logger.WithError(err).Error("failed to deliver power-up activation to activator")
		}
	}

	_ = e.rooms.Broadcast(ctx, roomfabric.MatchRoom(matchID), "opponent_used_powerup", map[string]interface{}{
		"type": powerUpType,
	})
	_ = e.rooms.Broadcast(ctx, roomfabric.MatchSpectatorRoom(matchID), "powerup_activated", map[string]interface{}{
		"playerId":  playerID,
		"type":      powerUpType,
		"timestamp": time.Now(),
	})
}

func (e *engine) expireTimeFreeze(ctx context.Context, matchID, playerID uuid.UUID, expiresAt time.Time) {
	time.Sleep(time.Until(expiresAt))

	state, err := e.getState(ctx, matchID, playerID)
	if err != nil || state.ActiveEffect == nil || state.ActiveEffect.Type != constants.PowerUpTimeFreeze {
		return
	}
	state.ActiveEffect = nil
	if err := e.putState(ctx, matchID, playerID, state); err != nil {
		e.logger.WithError(err).Error("failed to clear expired time freeze effect")
		return
	}

	_ = e.rooms.Broadcast(ctx, roomfabric.MatchRoom(matchID), "powerup_effect_expired", map[string]interface{}{
		"playerId": playerID,
		"type":     constants.PowerUpTimeFreeze,
	})
}

// ConsumeShieldCharge consumes one debug shield charge on a test run, if
// the shield is active; otherwise it is a no-op per the §4.6 contract.
func (e *engine) ConsumeShieldCharge(ctx context.Context, matchID, playerID uuid.UUID) (*ShieldConsumeResult, error) {
	state, err := e.getState(ctx, matchID, playerID)
	if err != nil {
		return nil, err
	}

	if state.ActiveEffect == nil || state.ActiveEffect.Type != constants.PowerUpDebugShield || state.ActiveEffect.RemainingCharges <= 0 {
		return &ShieldConsumeResult{IsActive: false, RemainingCharges: 0, WasConsumed: false}, nil
	}

	state.ActiveEffect.RemainingCharges--
	remaining := state.ActiveEffect.RemainingCharges
	stillActive := remaining > 0
	if !stillActive {
		state.ActiveEffect = nil
	}

	if err := e.putState(ctx, matchID, playerID, state); err != nil {
		return nil, err
	}

	return &ShieldConsumeResult{IsActive: stillActive, RemainingCharges: remaining, WasConsumed: true}, nil
}
