// Package matchmaker implements C4 Matchmaker: a rating-banded FIFO
// queue with a tolerance window that widens the longer a player waits.
package matchmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QueueEntry represents a player waiting in the matchmaking queue
type QueueEntry struct {
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Rating      int       `json:"rating"`
	JoinedAt    time.Time `json:"joined_at"`
}

// RatingBand buckets a rating into a 100-point-wide band, used as the
// Redis queue key so FIFO order is preserved within similarly-rated
// players. The matchmaking worker's opponent search still scans every
// active band.
func RatingBand(rating int) int {
	return (rating / 100) * 100
}

// QueueOperations handles Redis queue operations for matchmaking
type QueueOperations interface {
	// AddToQueue adds a player to the matchmaking queue for their rating band
	AddToQueue(ctx context.Context, entry *QueueEntry) error

	// RemoveFromQueue removes a player from the matchmaking queue
	RemoveFromQueue(ctx context.Context, playerID uuid.UUID) error

	// GetQueueSize returns the current queue size for a rating band
	GetQueueSize(ctx context.Context, band int) (int64, error)

	// PeekQueue returns the first N players in a band's queue without removing them
	PeekQueue(ctx context.Context, band int, count int) ([]*QueueEntry, error)

	// PopSpecific removes a specific player's entry from a band's queue
	PopSpecific(ctx context.Context, band int, playerID uuid.UUID) (*QueueEntry, error)

	// IsPlayerInQueue checks if a player is currently queued, returning their band
	IsPlayerInQueue(ctx context.Context, playerID uuid.UUID) (bool, int, error)

	// ActiveBands returns the set of rating bands that currently have at least one waiting player
	ActiveBands(ctx context.Context) ([]int, error)
}

// redisQueueOperations implements QueueOperations using Redis
type redisQueueOperations struct {
	client *redis.Client
}

// NewQueueOperations creates a new Redis-based queue operations handler
func NewQueueOperations(client *redis.Client) QueueOperations {
	return &redisQueueOperations{client: client}
}

func (q *redisQueueOperations) bandKey(band int) string {
	return fmt.Sprintf("matchmaking:queue:%d", band)
}

func (q *redisQueueOperations) playerKey(playerID uuid.UUID) string {
	return fmt.Sprintf("matchmaking:player:%s", playerID.String())
}

func (q *redisQueueOperations) bandsSetKey() string {
	return "matchmaking:active_bands"
}

// AddToQueue adds a player to the matchmaking queue for their rating band
func (q *redisQueueOperations) AddToQueue(ctx context.Context, entry *QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal queue entry: %w", err)
	}

	band := RatingBand(entry.Rating)
	queueKey := q.bandKey(band)

	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, queueKey, data)
	pipe.Set(ctx, q.playerKey(entry.PlayerID), band, time.Hour)
	pipe.SAdd(ctx, q.bandsSetKey(), band)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// RemoveFromQueue removes a player from the matchmaking queue
func (q *redisQueueOperations) RemoveFromQueue(ctx context.Context, playerID uuid.UUID) error {
	inQueue, band, err := q.IsPlayerInQueue(ctx, playerID)
	if err != nil {
		return err
	}
	if !inQueue {
		return nil
	}

	if _, err := q.PopSpecific(ctx, band, playerID); err != nil {
		return err
	}
	return nil
}

// GetQueueSize returns the current queue size for a rating band
func (q *redisQueueOperations) GetQueueSize(ctx context.Context, band int) (int64, error) {
	size, err := q.client.LLen(ctx, q.bandKey(band)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue size: %w", err)
	}
	return size, nil
}

// PeekQueue returns the first N players in a band's queue without removing them
func (q *redisQueueOperations) PeekQueue(ctx context.Context, band int, count int) ([]*QueueEntry, error) {
	raw, err := q.client.LRange(ctx, q.bandKey(band), 0, int64(count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to peek queue: %w", err)
	}

	entries := make([]*QueueEntry, 0, len(raw))
	for _, data := range raw {
		var entry QueueEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

// PopSpecific removes a specific player's entry from a band's queue.
// LRem's removed-count is the atomicity boundary: when two callers both
// observe the same entry via LRange (the pairing worker racing a
// player's own leave_queue), Redis guarantees only one LRem on the
// exact same encoded entry actually removes anything — the loser's
// count comes back 0 and must not be reported as a successful pop.
func (q *redisQueueOperations) PopSpecific(ctx context.Context, band int, playerID uuid.UUID) (*QueueEntry, error) {
	queueKey := q.bandKey(band)

	raw, err := q.client.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entries: %w", err)
	}

	for _, data := range raw {
		var entry QueueEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}

		if entry.PlayerID == playerID {
			pipe := q.client.TxPipeline()
			remCmd := pipe.LRem(ctx, queueKey, 1, data)
			pipe.Del(ctx, q.playerKey(playerID))
			if _, err := pipe.Exec(ctx); err != nil {
				return nil, fmt.Errorf("failed to pop from queue: %w", err)
			}
			if remCmd.Val() == 0 {
				// another caller's LRem on this exact entry won the race.
				return nil, nil
			}
			return &entry, nil
		}
	}

	return nil, nil
}

// IsPlayerInQueue checks if a player is currently queued, returning their band
func (q *redisQueueOperations) IsPlayerInQueue(ctx context.Context, playerID uuid.UUID) (bool, int, error) {
	band, err := q.client.Get(ctx, q.playerKey(playerID)).Int()
	if err == redis.Nil {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to check player queue status: %w", err)
	}

	return true, band, nil
}

// ActiveBands returns the set of rating bands that currently have at least one waiting player
func (q *redisQueueOperations) ActiveBands(ctx context.Context) ([]int, error) {
	raw, err := q.client.SMembers(ctx, q.bandsSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active bands: %w", err)
	}

	bands := make([]int, 0, len(raw))
	for _, s := range raw {
		var band int
		if _, err := fmt.Sscanf(s, "%d", &band); err == nil {
			bands = append(bands, band)
		}
	}
	return bands, nil
}
