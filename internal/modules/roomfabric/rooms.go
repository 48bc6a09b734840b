// Package roomfabric implements C2 Room Fabric: named groups addressable
// by label (match:{id}, match:{id}:spectators, ghost_race:{id}), backed
// by Centrifugo channels for delivery and a Redis set per room for
// membership bookkeeping that survives across process instances.
package roomfabric

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/centrifugo"
)

// Room name builders. Centralized here so callers never hand-format
// channel strings and risk a typo splitting a room in two.
func MatchRoom(matchID uuid.UUID) string            { return fmt.Sprintf("match:%s", matchID) }
func MatchSpectatorRoom(matchID uuid.UUID) string    { return fmt.Sprintf("match:%s:spectators", matchID) }
func GhostRaceRoom(raceID uuid.UUID) string          { return fmt.Sprintf("ghost_race:%s", raceID) }

// Fabric is the C2 Room Fabric contract.
type Fabric interface {
	// Join adds a connection to a named room's membership set.
	Join(ctx context.Context, connectionID, room string) error

	// Leave removes a connection from a room's membership set.
	Leave(ctx context.Context, connectionID, room string) error

	// Broadcast delivers event/payload to every member of room.
	Broadcast(ctx context.Context, room, event string, payload interface{}) error

	// BroadcastExcept delivers to every member of room other than except.
	BroadcastExcept(ctx context.Context, room, except, event string, payload interface{}) error

	// Members lists the connection IDs currently joined to room.
	Members(ctx context.Context, room string) ([]string, error)
}

type fabric struct {
	redis      *redis.Client
	centrifugo *centrifugo.Client
	logger     *logrus.Logger
}

// NewFabric constructs a Centrifugo+Redis-backed Room Fabric.
func NewFabric(redisClient *redis.Client, centrifugoClient *centrifugo.Client, logger *logrus.Logger) Fabric {
	return &fabric{redis: redisClient, centrifugo: centrifugoClient, logger: logger}
}

func membersKey(room string) string {
	return fmt.Sprintf("room:%s:members", room)
}

// Join adds a connection to a named room's membership set and subscribes
// it on the transport so future broadcasts reach it.
func (f *fabric) Join(ctx context.Context, connectionID, room string) error {
	if err := f.redis.SAdd(ctx, membersKey(room), connectionID).Err(); err != nil {
		return fmt.Errorf("failed to join room %s: %w", room, err)
	}
	if err := f.centrifugo.Subscribe(ctx, room, connectionID); err != nil {
		return fmt.Errorf("failed to subscribe connection to room %s: %w", room, err)
	}
	return nil
}

// Leave removes a connection from a room's membership set.
func (f *fabric) Leave(ctx context.Context, connectionID, room string) error {
	if err := f.redis.SRem(ctx, membersKey(room), connectionID).Err(); err != nil {
		return fmt.Errorf("failed to leave room %s: %w", room, err)
	}
	if err := f.centrifugo.Unsubscribe(ctx, room, connectionID); err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"room":       room,
			"connection": connectionID,
		}).Warn("failed to unsubscribe connection from transport on leave")
	}
	return nil
}

// Broadcast delivers event/payload to every member of room. Per-connection
// FIFO is guaranteed by the transport; two Broadcast calls against the
// same room are delivered to each member in call order.
func (f *fabric) Broadcast(ctx context.Context, room, event string, payload interface{}) error {
	if err := f.centrifugo.Publish(ctx, room, event, payload); err != nil {
		return fmt.Errorf("failed to broadcast to room %s: %w", room, err)
	}
	return nil
}

// BroadcastExcept delivers event/payload to every member of room except
// the given connection (used e.g. for opponent-only notifications). The
// transport channel carries everyone; the excluded connection's client
// is expected to filter, so exclusion is enforced by instead publishing
// to every member's private channel except the excluded one.
func (f *fabric) BroadcastExcept(ctx context.Context, room, except, event string, payload interface{}) error {
	members, err := f.Members(ctx, room)
	if err != nil {
		return err
	}

	targets := make([]string, 0, len(members))
	for _, m := range members {
		if m == except {
			continue
		}
		targets = append(targets, personalChannel(m))
	}
	if len(targets) == 0 {
		return nil
	}

	if err := f.centrifugo.Broadcast(ctx, targets, event, payload); err != nil {
		return fmt.Errorf("failed to broadcast-except to room %s: %w", room, err)
	}
	return nil
}

// Members lists the connection IDs currently joined to room.
func (f *fabric) Members(ctx context.Context, room string) ([]string, error) {
	members, err := f.redis.SMembers(ctx, membersKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list members of room %s: %w", room, err)
	}
	return members, nil
}

func personalChannel(connectionID string) string {
	return fmt.Sprintf("conn:%s", connectionID)
}
