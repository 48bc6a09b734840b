package matchfsm

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestJudgingResultFallbackDefaults(t *testing.T) {
	result := &JudgingResult{IsFallback: true}

	assert.True(t, result.IsFallback)
	assert.False(t, result.WinnerID.Valid)
	assert.Nil(t, result.PlayerScores)
	assert.Nil(t, result.Feedback)
}

func TestRemainingTimeNeverNegativeAfterExpiry(t *testing.T) {
	startedAt := time.Now().Add(-2 * time.Minute)
	timeLimit := 90 * time.Second

	remaining := timeLimit - time.Since(startedAt)
	assert.Less(t, remaining, time.Duration(0))

	clamped := remaining
	if clamped < 0 {
		clamped = 0
	}
	assert.Equal(t, time.Duration(0), clamped)
}

func TestJudgingResultCarriesWinner(t *testing.T) {
	winner := uuid.New()
	result := &JudgingResult{
		WinnerID: uuid.NullUUID{UUID: winner, Valid: true},
		PlayerScores: map[uuid.UUID]int{
			winner: 950,
		},
	}

	assert.True(t, result.WinnerID.Valid)
	assert.Equal(t, winner, result.WinnerID.UUID)
	assert.Equal(t, 950, result.PlayerScores[winner])
}
