package rpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
	"github.com/codeduel/match-core/internal/modules/gateway/events"
)

// Dispatcher routes one incoming {event, payload} envelope (per spec
// §6.1) to the handler that owns it. It is the single seam the
// Centrifugo RPC proxy webhook calls into.
type Dispatcher struct {
	Matchmaking *MatchmakingHandler
	Match       *MatchHandler
	PowerUp     *PowerUpHandler
	Hint        *HintHandler
	Spectate    *SpectateHandler
	GhostRace   *GhostRaceHandler
	logger      *logrus.Logger
}

// NewDispatcher composes the full RPC surface from its per-domain handlers.
func NewDispatcher(matchmaking *MatchmakingHandler, match *MatchHandler, powerUp *PowerUpHandler, hintHandler *HintHandler, spectate *SpectateHandler, ghostRace *GhostRaceHandler, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		Matchmaking: matchmaking,
		Match:       match,
		PowerUp:     powerUp,
		Hint:        hintHandler,
		Spectate:    spectate,
		GhostRace:   ghostRace,
		logger:      logger,
	}
}

// Dispatch routes event to its handler. connID is the Centrifugo
// connection ID (used for room membership and except-self broadcasts);
// playerID is the identity the Centrifugo connect proxy bound to that
// connection.
func (d *Dispatcher) Dispatch(ctx context.Context, connID string, playerID uuid.UUID, event string, data []byte) ([]byte, error) {
	switch event {
	case events.EventJoinQueue:
		return d.Matchmaking.HandleJoinQueue(ctx, playerID, data)
	case events.EventLeaveQueue:
		return d.Matchmaking.HandleLeaveQueue(ctx, playerID, data)

	case events.EventJoinLobby:
		return d.Match.HandleJoinLobby(ctx, connID, playerID, data)
	case events.EventReadyUp:
		return d.Match.HandleReadyUp(ctx, playerID, data)
	case events.EventCodeUpdate:
		return d.Match.HandleCodeUpdate(ctx, connID, playerID, data)
	case events.EventRunCode:
		return d.Match.HandleRunCode(ctx, connID, playerID, data)
	case events.EventSubmitSolution:
		return d.Match.HandleSubmitSolution(ctx, connID, playerID, data)

	case events.EventActivatePowerUp:
		return d.PowerUp.HandleActivatePowerUp(ctx, playerID, data)

	case events.EventRequestHint:
		return d.Hint.HandleRequestHint(ctx, playerID, data)

	case events.EventJoinSpectate:
		return d.Spectate.HandleJoinSpectate(ctx, connID, data)
	case events.EventSpectatorMessage:
		return d.Spectate.HandleSpectatorMessage(ctx, connID, data)
	case events.EventSpectatorReaction:
		return d.Spectate.HandleSpectatorReaction(ctx, connID, data)

	case "start_race":
		return d.GhostRace.HandleStartRace(ctx, playerID, data)
	case "submit_race_code":
		return d.GhostRace.HandleSubmitRaceCode(ctx, data)
	case "abandon_race":
		return d.GhostRace.HandleAbandonRace(ctx, data)

	default:
		d.logger.WithFields(logrus.Fields{"event": event, "player_id": playerID}).Warn("unrecognized RPC event")
		return errResponse(apperr.New(apperr.CodeInvalidRequest, "unrecognized event: "+event))
	}
}
