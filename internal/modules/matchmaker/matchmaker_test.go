package matchmaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeduel/match-core/internal/config"
)

func TestRatingBand(t *testing.T) {
	tests := []struct {
		rating int
		want   int
	}{
		{rating: 1000, want: 1000},
		{rating: 1050, want: 1000},
		{rating: 1099, want: 1000},
		{rating: 1100, want: 1100},
		{rating: 0, want: 0},
		{rating: 1999, want: 1900},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RatingBand(tt.rating))
	}
}

func TestCurrentTolerance(t *testing.T) {
	cfg := &config.Config{
		MatchmakingBaseToleranceRating: 50,
		MatchmakingWidenEverySeconds:   10,
		MatchmakingMaxToleranceRating:  300,
	}
	svc := &matchmakerService{cfg: cfg}

	assert.Equal(t, 50, svc.currentTolerance(0))
	assert.Equal(t, 100, svc.currentTolerance(10*time.Second))
	assert.Equal(t, 150, svc.currentTolerance(25*time.Second))
}

func TestCurrentToleranceClampsToMax(t *testing.T) {
	cfg := &config.Config{
		MatchmakingBaseToleranceRating: 100,
		MatchmakingWidenEverySeconds:   5,
		MatchmakingMaxToleranceRating:  250,
	}
	svc := &matchmakerService{cfg: cfg}

	assert.Equal(t, 250, svc.currentTolerance(time.Minute))
}

func TestAbs(t *testing.T) {
	assert.Equal(t, 5, abs(5))
	assert.Equal(t, 5, abs(-5))
	assert.Equal(t, 0, abs(0))
}

func TestBandLabel(t *testing.T) {
	assert.Equal(t, "1100", bandLabel(1100))
	assert.Equal(t, "0", bandLabel(0))
}
