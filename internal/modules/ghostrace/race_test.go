package ghostrace

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

func TestSynthesizeGhostFailsWithoutReferenceSolution(t *testing.T) {
	challenge := &models.Challenge{ID: uuid.New(), Difficulty: "medium"}
	_, err := synthesizeGhost(challenge)
	assert.Error(t, err)
}

func TestSynthesizeGhostProducesMonotoneTimeline(t *testing.T) {
	challenge := &models.Challenge{
		ID:                uuid.New(),
		Difficulty:        "easy",
		ReferenceSolution: "def solve(x):\n    return x * 2\n",
	}

	recording, err := synthesizeGhost(challenge)
	require.NoError(t, err)
	assert.Equal(t, challenge.ID, recording.ChallengeID)
	assert.Equal(t, challenge.Difficulty, recording.Difficulty)

	ticks, err := recording.GetTimeline()
	require.NoError(t, err)
	require.NotEmpty(t, ticks)

	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, ticks[i].OffsetMillis, ticks[i-1].OffsetMillis)
		assert.GreaterOrEqual(t, ticks[i].CodeLength, ticks[i-1].CodeLength)
	}

	last := ticks[len(ticks)-1]
	assert.Equal(t, len([]rune(challenge.ReferenceSolution)), last.CodeLength)
	assert.Equal(t, 1, last.TestsPassed)
}

func TestStateKeyIsNamespacedPerRace(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.NotEqual(t, stateKey(a), stateKey(b))
	assert.Contains(t, stateKey(a), a.String())
}
