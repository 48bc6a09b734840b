package matchstate

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateKey(t *testing.T) {
	matchID := uuid.New()
	assert.Equal(t, "match:"+matchID.String()+":state", stateKey(matchID))
}

func TestPlayerField(t *testing.T) {
	playerID := uuid.New()
	assert.Equal(t, "player:"+playerID.String(), playerField(playerID))
}

func TestPlayerStateRoundTrip(t *testing.T) {
	ps := &PlayerState{
		PlayerID:  uuid.New(),
		Language:  "python3",
		Ready:     true,
		Code:      "print(1)",
		Cursor:    Cursor{Line: 2, Col: 5},
		Submitted: false,
	}

	data, err := json.Marshal(ps)
	require.NoError(t, err)
	var decoded PlayerState
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "python3", decoded.Language)
	assert.Equal(t, Cursor{Line: 2, Col: 5}, decoded.Cursor)
}
