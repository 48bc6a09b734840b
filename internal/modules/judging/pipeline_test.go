package judging

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWeightOrOneDefaultsUnweightedCasesToOne(t *testing.T) {
	assert.Equal(t, 1, weightOrOne(0))
	assert.Equal(t, 1, weightOrOne(-3))
	assert.Equal(t, 5, weightOrOne(5))
}

func TestStructurallyEqualComparesJSONSemantically(t *testing.T) {
	assert.True(t, structurallyEqual(`{"a":1,"b":2}`, `{"b":2,"a":1}`))
	assert.True(t, structurallyEqual(`[1,2,3]`, `[1,2,3]`))
	assert.False(t, structurallyEqual(`[1,2,3]`, `[1,2,4]`))
}

func TestStructurallyEqualFallsBackToLiteralComparison(t *testing.T) {
	assert.True(t, structurallyEqual("hello world", "hello world"))
	assert.False(t, structurallyEqual("hello", "world"))
}

func TestMeanDurationOfEmptySliceIsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), meanDuration(nil))
}

func TestMeanDurationAverages(t *testing.T) {
	got := meanDuration([]time.Duration{100 * time.Millisecond, 300 * time.Millisecond})
	assert.Equal(t, 200*time.Millisecond, got)
}

func TestOutcomeForNoWinnerIsADraw(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	actualA, actualB := outcomeFor(uuid.NullUUID{}, a, b)
	assert.Equal(t, 0.5, actualA)
	assert.Equal(t, 0.5, actualB)
}

func TestOutcomeForDeclaredWinner(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	actualA, actualB := outcomeFor(uuid.NullUUID{UUID: a, Valid: true}, a, b)
	assert.Equal(t, 1.0, actualA)
	assert.Equal(t, 0.0, actualB)
}

func TestEloDeltaIsZeroSumForEvenlyMatchedPlayers(t *testing.T) {
	deltaWinner := eloDelta(1200, 1200, 1)
	deltaLoser := eloDelta(1200, 1200, 0)
	assert.Equal(t, 16, deltaWinner)
	assert.Equal(t, -16, deltaLoser)
}

func TestEloDeltaRewardsUpsetMoreThanExpectedWin(t *testing.T) {
	upsetGain := eloDelta(1000, 1400, 1)
	expectedGain := eloDelta(1400, 1000, 1)
	assert.Greater(t, upsetGain, expectedGain)
}

func TestEloDeltaDrawFavorsNobodyBetweenEquals(t *testing.T) {
	assert.Equal(t, 0, eloDelta(1200, 1200, 0.5))
}
