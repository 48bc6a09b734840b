package powerup

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/codeduel/match-core/internal/constants"
	"github.com/codeduel/match-core/internal/modules/matchstate"
)

func TestCountForAndDecrement(t *testing.T) {
	e := &engine{}
	inv := Inventory{TimeFreeze: 1, CodePeek: 1, DebugShield: 1}

	assert.Equal(t, 1, e.countFor(inv, constants.PowerUpTimeFreeze))
	assert.Equal(t, 1, e.countFor(inv, constants.PowerUpCodePeek))
	assert.Equal(t, 1, e.countFor(inv, constants.PowerUpDebugShield))

	e.decrement(&inv, constants.PowerUpCodePeek)
	assert.Equal(t, Inventory{TimeFreeze: 1, CodePeek: 0, DebugShield: 1}, inv)
}

func TestOpponentCode(t *testing.T) {
	e := &engine{}
	activator := "11111111-1111-1111-1111-111111111111"
	opponent := "22222222-2222-2222-2222-222222222222"

	state := &matchstate.MatchState{
		Players: map[string]*matchstate.PlayerState{
			activator: {Code: "print(1)"},
			opponent:  {Code: "print(2)"},
		},
	}

	got := e.opponentCode(state, uuid.MustParse(activator))
	assert.Equal(t, "print(2)", got)
}

func TestShieldConsumeResultNoOpWhenInactive(t *testing.T) {
	result := &ShieldConsumeResult{IsActive: false, RemainingCharges: 0, WasConsumed: false}
	assert.False(t, result.WasConsumed)
	assert.False(t, result.IsActive)
}
