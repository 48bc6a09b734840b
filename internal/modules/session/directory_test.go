package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPlayerKeyAndConnectionKey(t *testing.T) {
	playerID := uuid.New()
	assert.Equal(t, "session:player:"+playerID.String(), playerKey(playerID))
	assert.Equal(t, "session:conn:abc123", connectionKey("abc123"))
}

func TestBumpVersionIncrementsPerPlayer(t *testing.T) {
	d := &redisDirectory{}
	playerID := uuid.New()
	other := uuid.New()

	assert.Equal(t, int64(1), d.bumpVersion(playerID))
	assert.Equal(t, int64(2), d.bumpVersion(playerID))
	assert.Equal(t, int64(3), d.bumpVersion(playerID))

	// a different player's version sequence is independent
	assert.Equal(t, int64(1), d.bumpVersion(other))
	assert.Equal(t, int64(4), d.bumpVersion(playerID))
}
