package rpc

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// codeUpdateThrottle enforces the one-accepted-edit-per-100ms cap on
// code_update, keyed by (matchId, playerId) rather than bare playerId
// so a player in two matches concurrently doesn't under-throttle one
// from activity in the other. Rejected edits are dropped silently at
// this edge — the client's own state already converges since every
// code_update is a full snapshot, not a delta.
type codeUpdateThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newCodeUpdateThrottle() *codeUpdateThrottle {
	return &codeUpdateThrottle{limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether this (matchID, playerID) pair's next edit
// should be accepted.
func (t *codeUpdateThrottle) Allow(matchID, playerID uuid.UUID) bool {
	key := matchID.String() + ":" + playerID.String()

	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}
