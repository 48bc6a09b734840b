package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is the durable record of a duel participant's identity and
// rating, independent of any single match.
type Player struct {
	ID          uuid.UUID `db:"id"`
	DisplayName string    `db:"display_name"`
	Rating      int       `db:"rating"`
	MatchesWon  int       `db:"matches_won"`
	MatchesLost int       `db:"matches_lost"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// RatingDelta describes a single player's rating change from one
// completed match, applied atomically alongside the opponent's.
type RatingDelta struct {
	PlayerID   uuid.UUID
	NewRating  int
	Won        bool
}
