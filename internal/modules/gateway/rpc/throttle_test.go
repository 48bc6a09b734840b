package rpc

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCodeUpdateThrottleDropsBurst(t *testing.T) {
	th := newCodeUpdateThrottle()
	matchID, playerID := uuid.New(), uuid.New()

	assert.True(t, th.Allow(matchID, playerID), "first edit in a fresh window should be accepted")
	assert.False(t, th.Allow(matchID, playerID), "a second edit within 100ms should be dropped")
}

func TestCodeUpdateThrottleIsPerMatchNotJustPlayer(t *testing.T) {
	th := newCodeUpdateThrottle()
	playerID := uuid.New()
	matchA, matchB := uuid.New(), uuid.New()

	assert.True(t, th.Allow(matchA, playerID))
	assert.True(t, th.Allow(matchB, playerID), "the same player's edit in a different match must not be throttled by the first match's bucket")
}

func TestCodeUpdateThrottleRecoversAfterWindow(t *testing.T) {
	th := newCodeUpdateThrottle()
	matchID, playerID := uuid.New(), uuid.New()

	require := assert.New(t)
	require.True(th.Allow(matchID, playerID))
	time.Sleep(110 * time.Millisecond)
	require.True(th.Allow(matchID, playerID), "a new edit after the 100ms window should be accepted again")
}
