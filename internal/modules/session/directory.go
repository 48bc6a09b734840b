// Package session implements C1 Session Directory: the bijection
// between a playerId and its live connectionId, with a grace window
// that absorbs brief disconnects without tearing down queue position
// or in-progress match state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DisconnectHandler is invoked once a disconnect's grace window has
// elapsed without a rebind, so downstream cleanup (queue removal,
// match abandonment) can run exactly once per genuine disconnect.
type DisconnectHandler func(ctx context.Context, playerID uuid.UUID)

// Directory is the C1 Session Directory contract.
type Directory interface {
	// Bind atomically evicts any prior connection for playerID and
	// records the new one.
	Bind(ctx context.Context, playerID uuid.UUID, connectionID string) error

	// Unbind removes a connection's binding and, if no rebind happens
	// for this playerID within the grace window, invokes onExpire.
	Unbind(ctx context.Context, connectionID string, onExpire DisconnectHandler)

	// Lookup returns the live connectionId for a player, if any.
	Lookup(ctx context.Context, playerID uuid.UUID) (string, bool, error)

	// PlayerFor returns the playerId bound to a connection, if any.
	PlayerFor(ctx context.Context, connectionID string) (uuid.UUID, bool, error)
}

type redisDirectory struct {
	client        *redis.Client
	logger        *logrus.Logger
	graceWindow   time.Duration
	versions      sync.Map // playerID -> int64, incremented on every Bind/Unbind
}

// NewDirectory constructs a Redis-backed Session Directory. graceWindow
// is the delay before a disconnect's cleanup handler fires.
func NewDirectory(client *redis.Client, logger *logrus.Logger, graceWindow time.Duration) Directory {
	return &redisDirectory{
		client:      client,
		logger:      logger,
		graceWindow: graceWindow,
	}
}

func playerKey(playerID uuid.UUID) string {
	return fmt.Sprintf("session:player:%s", playerID.String())
}

func connectionKey(connectionID string) string {
	return fmt.Sprintf("session:conn:%s", connectionID)
}

// Bind atomically evicts any prior binding for playerID and installs the
// new connectionId in both directions of the bijection.
func (d *redisDirectory) Bind(ctx context.Context, playerID uuid.UUID, connectionID string) error {
	prior, err := d.client.Get(ctx, playerKey(playerID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read prior session: %w", err)
	}

	pipe := d.client.TxPipeline()
	if prior != "" && prior != connectionID {
		pipe.Del(ctx, connectionKey(prior))
		d.logger.WithFields(logrus.Fields{
			"player_id":       playerID,
			"evicted_conn_id": prior,
			"new_conn_id":     connectionID,
		}).Info("evicting prior session binding")
	}
	pipe.Set(ctx, playerKey(playerID), connectionID, 0)
	pipe.Set(ctx, connectionKey(connectionID), playerID.String(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to bind session: %w", err)
	}

	d.bumpVersion(playerID)
	return nil
}

// Unbind removes connectionID's binding. The downstream cleanup handler
// only runs if no newer Bind for the same player raced it during the
// grace window — the version token makes that race resolvable without
// cancelling the scheduled goroutine.
func (d *redisDirectory) Unbind(ctx context.Context, connectionID string, onExpire DisconnectHandler) {
	playerIDStr, err := d.client.Get(ctx, connectionKey(connectionID)).Result()
	if err == redis.Nil {
		return
	}
	if err != nil {
		d.logger.WithError(err).Error("failed to look up session for unbind")
		return
	}

	playerID, err := uuid.Parse(playerIDStr)
	if err != nil {
		return
	}

	pipe := d.client.TxPipeline()
	pipe.Del(ctx, connectionKey(connectionID))
	pipe.Del(ctx, playerKey(playerID))
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.WithError(err).Error("failed to unbind session")
		return
	}

	versionAtDisconnect := d.bumpVersion(playerID)

	if onExpire == nil {
		return
	}

	go func() {
		time.Sleep(d.graceWindow)

		current, _ := d.versions.Load(playerID)
		if current != nil && current.(int64) != versionAtDisconnect {
			// player rebound (or disconnected again) during the grace
			// window; this stale goroutine yields to the newer one.
			return
		}

		onExpire(context.Background(), playerID)
	}()
}

// bumpVersion increments and returns the per-player version token used
// to resolve the rebind-vs-cleanup race without timer cancellation.
func (d *redisDirectory) bumpVersion(playerID uuid.UUID) int64 {
	next := int64(1)
	if v, ok := d.versions.Load(playerID); ok {
		next = v.(int64) + 1
	}
	d.versions.Store(playerID, next)
	return next
}

// Lookup returns the live connectionId for a player, if any.
func (d *redisDirectory) Lookup(ctx context.Context, playerID uuid.UUID) (string, bool, error) {
	connID, err := d.client.Get(ctx, playerKey(playerID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up player session: %w", err)
	}
	return connID, true, nil
}

// PlayerFor returns the playerId bound to a connection, if any.
func (d *redisDirectory) PlayerFor(ctx context.Context, connectionID string) (uuid.UUID, bool, error) {
	playerIDStr, err := d.client.Get(ctx, connectionKey(connectionID)).Result()
	if err == redis.Nil {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up connection session: %w", err)
	}
	playerID, err := uuid.Parse(playerIDStr)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return playerID, true, nil
}
