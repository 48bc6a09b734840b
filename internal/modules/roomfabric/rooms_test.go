package roomfabric

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoomNameBuilders(t *testing.T) {
	matchID := uuid.New()
	raceID := uuid.New()

	assert.Equal(t, "match:"+matchID.String(), MatchRoom(matchID))
	assert.Equal(t, "match:"+matchID.String()+":spectators", MatchSpectatorRoom(matchID))
	assert.Equal(t, "ghost_race:"+raceID.String(), GhostRaceRoom(raceID))
}

func TestMembersKeyAndPersonalChannel(t *testing.T) {
	assert.Equal(t, "room:match:abc:members", membersKey("match:abc"))
	assert.Equal(t, "conn:xyz", personalChannel("xyz"))
}
